package propath

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// Manifest constants for a stec tree.
const (
	ManifestName   = "stec.ini"
	SectionStartup = "Startup"
	KeyPropath     = "PROPATH"
)

var (
	sectionRe = regexp.MustCompile(`^\s*\[([^\]]*)\]`)
	keyRe     = regexp.MustCompile(`^\s*([^=:;#\s][^=:]*?)\s*[=:]`)
)

// locateKey returns the 1-based line at which key is declared inside
// section, or 0 if it is not present. The INI parser does not keep line
// numbers, so the report finds them with this scan.
func locateKey(data []byte, section, key string) int {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	current := ""
	line := 0
	found := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if m := sectionRe.FindStringSubmatch(text); m != nil {
			current = strings.TrimSpace(m[1])
			continue
		}
		if current != section {
			continue
		}
		if m := keyRe.FindStringSubmatch(text); m != nil && m[1] == key {
			// Later duplicates override earlier ones in the parser too.
			found = line
		}
	}
	return found
}
