// Package manifest provides a format-preserving document model for Cargo
// manifests (Cargo.toml).
//
// A Document keeps the original source lines and line endings. Tables, keys
// and values record where they sit in those lines, so a single value can be
// replaced in place and Serialize reproduces every other byte unchanged.
package manifest

// Diagnostic is a structured error or warning record emitted while parsing or
// mutating a manifest.
type Diagnostic struct {
	Severity string    `json:"severity"` // "error" | "warning" | "info"
	Code     string    `json:"code"`     // e.g. "MNE001", "MNW002"
	Message  string    `json:"message"`
	Path     string    `json:"path,omitempty"`     // manifest path, filled in by callers that know it
	Location *Location `json:"location,omitempty"` // nil if no source location
}

// Location identifies a source position within a manifest.
type Location struct {
	Line   int `json:"line"`   // 1-based
	Column int `json:"column"` // 1-based
}

// Severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Manifest errors (the edit is aborted).
const (
	CodeParseFailure   = "MNE001"
	CodeTableMissing   = "MNE002"
	CodeFieldNotString = "MNE003"
)

// Manifest warnings (the single dependency entry is skipped).
const (
	CodeInvalidRequirement     = "MNW001"
	CodeVersionNotString       = "MNW002"
	CodeUnsupportedRequirement = "MNW003"
	CodeUnmatchedRequirement   = "MNW004"
)

// Informational (the entry is skipped; nothing is wrong).
const (
	CodeForeignCrateRoot = "MNI001"
	CodePathOnly         = "MNI002"
)

// HasErrors reports whether any diagnostic in diags has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Document is a parsed manifest.
type Document struct {
	Lines    []string // source lines without endings
	LineEnds []string // line ending per line: "\n", "\r\n", "\r", or "" for a final unterminated line
	HasBOM   bool     // true if input had a UTF-8 BOM
	Tables   []*Table // document order; Tables[0] is the implicit root table

	values []*Value // every value in parse order, for position bookkeeping
}

// Table is a [header] or [[array]] table and the key/value lines under it.
type Table struct {
	Key     []string // header key path; empty for the root table
	Array   bool     // true for [[array-of-tables]]
	Line    int      // 0-based header line; -1 for the root table
	Entries []*Entry
}

// Entry is a `key = value` assignment.
type Entry struct {
	Key   []string // dotted key relative to the owning table or inline table
	Value *Value
}

// ValueKind classifies a value.
type ValueKind int

const (
	KindOther ValueKind = iota // numbers, dates and anything not listed below
	KindString
	KindBool
	KindArray
	KindInlineTable
)

// Value is a TOML value and its source span. Start and End are byte columns
// within Lines[Line] and Lines[EndLine]; End is exclusive.
type Value struct {
	Kind    ValueKind
	Line    int
	Start   int
	EndLine int
	End     int
	Raw     string   // source text of the value
	Str     string   // decoded text (KindString only)
	Literal bool     // single-quoted string
	Entries []*Entry // KindInlineTable only
}

// IsTrue reports whether v is the boolean true.
func (v *Value) IsTrue() bool {
	return v != nil && v.Kind == KindBool && v.Raw == "true"
}
