package log

// Canonical field name constants for structured logging.
const (
	FieldRequestID = "request_id"
	FieldEvent     = "event"
	FieldComponent = "component"

	FieldRoot     = "root"
	FieldManifest = "manifest"
	FieldPath     = "path"
	FieldResolved = "resolved"
	FieldQuery    = "query"
	FieldMatches  = "matches"
	FieldSkipped  = "skipped"
)
