package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMultiline is returned when an edit targets a value spanning lines.
var ErrMultiline = errors.New("cannot replace a multi-line value")

// Table returns the first standard table whose header key equals key.
// Table() with no key returns the root table.
func (d *Document) Table(key ...string) *Table {
	for _, t := range d.Tables {
		if !t.Array && equalKey(t.Key, key) {
			return t
		}
	}
	return nil
}

// Lookup returns the value assigned at the full key path, following table
// headers, dotted keys and inline tables. It returns nil when the key is not
// assigned a value directly (for example when it names a table).
func (d *Document) Lookup(key ...string) *Value {
	for _, t := range d.Tables {
		if t.Array || !hasPrefix(key, t.Key) {
			continue
		}
		if v := lookupEntries(t.Entries, key[len(t.Key):]); v != nil {
			return v
		}
	}
	return nil
}

func lookupEntries(entries []*Entry, key []string) *Value {
	if len(key) == 0 {
		return nil
	}
	for _, e := range entries {
		switch {
		case equalKey(e.Key, key):
			return e.Value
		case hasPrefix(key, e.Key) && e.Value.Kind == KindInlineTable:
			if v := lookupEntries(e.Value.Entries, key[len(e.Key):]); v != nil {
				return v
			}
		}
	}
	return nil
}

// Defines reports whether key, or any key below it, is present in the
// document in any form.
func (d *Document) Defines(key ...string) bool {
	for _, t := range d.Tables {
		if hasPrefix(t.Key, key) {
			return true
		}
		if !t.Array && hasPrefix(key, t.Key) && definesEntries(t.Entries, key[len(t.Key):]) {
			return true
		}
	}
	return false
}

func definesEntries(entries []*Entry, key []string) bool {
	for _, e := range entries {
		if hasPrefix(e.Key, key) {
			return true
		}
		if hasPrefix(key, e.Key) && e.Value.Kind == KindInlineTable && definesEntries(e.Value.Entries, key[len(e.Key):]) {
			return true
		}
	}
	return false
}

// SetString replaces v with a string holding s. A literal string stays
// literal when s can be written that way; everything else becomes a basic
// string. Positions of other values on the same line are kept in step.
func (d *Document) SetString(v *Value, s string) error {
	if v.Line != v.EndLine {
		return ErrMultiline
	}
	text := quoteString(s, v.Kind == KindString && v.Literal)
	line := d.Lines[v.Line]
	d.Lines[v.Line] = line[:v.Start] + text + line[v.End:]

	oldEnd := v.End
	delta := len(text) - (v.End - v.Start)
	for _, o := range d.values {
		if o == v {
			continue
		}
		if o.Line == v.Line && o.Start >= oldEnd {
			o.Start += delta
		}
		if o.EndLine == v.Line && o.End >= oldEnd {
			o.End += delta
		}
	}

	*v = Value{Kind: KindString, Line: v.Line, Start: v.Start, EndLine: v.Line, End: v.Start + len(text), Raw: text, Str: s, Literal: text[0] == '\''}
	for _, o := range d.values {
		if o.Line <= v.Line && v.Line <= o.EndLine {
			o.Raw = spanText(d.Lines, o)
		}
	}
	return nil
}

// InsertString adds `key = "s"` after the last entry of t and returns the new
// value.
func (d *Document) InsertString(t *Table, key string, s string) *Value {
	at := t.Line + 1
	for _, e := range t.Entries {
		if e.Value.EndLine+1 > at {
			at = e.Value.EndLine + 1
		}
	}

	prefix := formatKey(key) + " = "
	text := quoteString(s, false)

	nl := d.lineEnding()
	end := nl
	if at == len(d.Lines) {
		if at > 0 && d.LineEnds[at-1] == "" {
			d.LineEnds[at-1] = nl
			end = ""
		}
	}

	for _, o := range d.values {
		if o.Line >= at {
			o.Line++
			o.EndLine++
		}
	}
	for _, other := range d.Tables {
		if other.Line >= at {
			other.Line++
		}
	}

	d.Lines = append(d.Lines[:at], append([]string{prefix + text}, d.Lines[at:]...)...)
	d.LineEnds = append(d.LineEnds[:at], append([]string{end}, d.LineEnds[at:]...)...)

	v := &Value{Kind: KindString, Line: at, Start: len(prefix), EndLine: at, End: len(prefix) + len(text), Raw: text, Str: s}
	d.values = append(d.values, v)
	t.Entries = append(t.Entries, &Entry{Key: []string{key}, Value: v})
	return v
}

// lineEnding returns the first line ending used in the document, or "\n".
func (d *Document) lineEnding() string {
	for _, e := range d.LineEnds {
		if e != "" {
			return e
		}
	}
	return "\n"
}

// Position returns the 1-based source location of v.
func (v *Value) Position() *Location {
	return &Location{Line: v.Line + 1, Column: v.Start + 1}
}

func quoteString(s string, literal bool) string {
	if literal && !strings.ContainsAny(s, "'\r\n") {
		return "'" + s + "'"
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func formatKey(key string) string {
	if key == "" {
		return `""`
	}
	for i := 0; i < len(key); i++ {
		if !isBareKeyChar(key[i]) {
			return quoteString(key, false)
		}
	}
	return key
}

func equalKey(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// hasPrefix reports whether prefix is a leading sub-path of key.
func hasPrefix(key, prefix []string) bool {
	return len(prefix) <= len(key) && equalKey(key[:len(prefix)], prefix)
}
