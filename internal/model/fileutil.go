package model

import (
	"bufio"
	"fmt"
	"os"
)

// ContextLine is one numbered line of a file.
type ContextLine struct {
	Number int
	Text   string
	Target bool
}

// LineContext represents a line from a file with the lines around it.
type LineContext struct {
	Path       string
	LineNumber int
	Lines      []ContextLine
	ErrorMsg   string // Set if the file couldn't be read
}

// Target returns the text of the requested line, or "" if it was not found.
func (c LineContext) Target() string {
	for _, l := range c.Lines {
		if l.Target {
			return l.Text
		}
	}
	return ""
}

// GetLineContext reads filePath and returns lineNumber with up to radius
// lines on either side.
func GetLineContext(filePath string, lineNumber, radius int) LineContext {
	result := LineContext{
		Path:       filePath,
		LineNumber: lineNumber,
	}

	file, err := os.Open(filePath)
	if err != nil {
		result.ErrorMsg = fmt.Sprintf("Could not read file: %v", err)
		return result
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		result.ErrorMsg = fmt.Sprintf("Error reading file: %v", err)
		return result
	}

	if lineNumber < 1 || lineNumber > len(lines) {
		result.ErrorMsg = fmt.Sprintf("Line %d out of range (file has %d lines)", lineNumber, len(lines))
		return result
	}

	first := max(lineNumber-radius, 1)
	last := min(lineNumber+radius, len(lines))
	for n := first; n <= last; n++ {
		result.Lines = append(result.Lines, ContextLine{
			Number: n,
			Text:   lines[n-1],
			Target: n == lineNumber,
		})
	}
	return result
}
