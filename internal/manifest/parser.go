package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	toml "github.com/pelletier/go-toml/v2"
)

const utf8BOM = "\xEF\xBB\xBF"

// Parse parses a manifest and returns its Document, diagnostics, and any
// fatal error.
//
// The source is first validated with a full TOML decoder. A document that
// fails validation yields an MNE001 diagnostic and a nil Document; only
// valid TOML reaches the format-preserving scanner.
func Parse(ctx context.Context, src []byte) (*Document, []Diagnostic, error) {
	_ = ctx

	if !utf8.Valid(src) {
		return nil, nil, fmt.Errorf("manifest contains invalid UTF-8 content")
	}

	doc := &Document{}
	if bytes.HasPrefix(src, []byte(utf8BOM)) {
		doc.HasBOM = true
		src = src[len(utf8BOM):]
	}

	var probe map[string]any
	if err := toml.Unmarshal(src, &probe); err != nil {
		d := Diagnostic{
			Severity: SeverityError,
			Code:     CodeParseFailure,
			Message:  fmt.Sprintf("invalid TOML: %v", err),
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			d.Location = &Location{Line: row, Column: col}
		}
		return nil, []Diagnostic{d}, nil
	}

	doc.Lines, doc.LineEnds = splitLines(src)

	s := &scanner{lines: doc.Lines}
	if err := s.document(doc); err != nil {
		loc := &Location{Line: s.line + 1, Column: s.col + 1}
		return nil, []Diagnostic{{
			Severity: SeverityError,
			Code:     CodeParseFailure,
			Message:  err.Error(),
			Location: loc,
		}}, nil
	}
	doc.values = s.values
	return doc, nil, nil
}

// splitLines splits src into lines and their line endings.
// Handles \n, \r\n, and bare \r. A final line without a newline gets an
// empty ending.
func splitLines(src []byte) ([]string, []string) {
	if len(src) == 0 {
		return []string{}, []string{}
	}

	var lines []string
	var ends []string
	start := 0

	for i := 0; i < len(src); {
		switch src[i] {
		case '\n':
			lines = append(lines, string(src[start:i]))
			ends = append(ends, "\n")
			i++
			start = i
		case '\r':
			end := "\r"
			advance := 1
			if i+1 < len(src) && src[i+1] == '\n' {
				end = "\r\n"
				advance = 2
			}
			lines = append(lines, string(src[start:i]))
			ends = append(ends, end)
			i += advance
			start = i
		default:
			i++
		}
	}

	if start < len(src) {
		lines = append(lines, string(src[start:]))
		ends = append(ends, "")
	}

	return lines, ends
}

// scanner walks the source lines of a document that is already known to be
// valid TOML, recording tables, keys and value spans.
type scanner struct {
	lines  []string
	line   int
	col    int
	values []*Value
}

func (s *scanner) cur() string {
	if s.line >= len(s.lines) {
		return ""
	}
	return s.lines[s.line]
}

// peek returns the byte at the cursor, or 0 at end of line.
func (s *scanner) peek() byte {
	line := s.cur()
	if s.col < len(line) {
		return line[s.col]
	}
	return 0
}

func (s *scanner) skipSpace() {
	line := s.cur()
	for s.col < len(line) && (line[s.col] == ' ' || line[s.col] == '\t') {
		s.col++
	}
}

func (s *scanner) nextLine() bool {
	if s.line+1 >= len(s.lines) {
		return false
	}
	s.line++
	s.col = 0
	return true
}

func (s *scanner) document(doc *Document) error {
	current := &Table{Line: -1}
	doc.Tables = []*Table{current}

	for s.line < len(s.lines) {
		s.col = 0
		s.skipSpace()
		switch s.peek() {
		case 0, '#':
			s.line++
		case '[':
			array := strings.HasPrefix(s.cur()[s.col:], "[[")
			closing := "]"
			s.col++
			if array {
				s.col++
				closing = "]]"
			}
			key, err := s.key()
			if err != nil {
				return err
			}
			s.skipSpace()
			if !strings.HasPrefix(s.cur()[s.col:], closing) {
				return fmt.Errorf("expected %q after table header", closing)
			}
			current = &Table{Key: key, Array: array, Line: s.line}
			doc.Tables = append(doc.Tables, current)
			s.line++
		default:
			key, err := s.key()
			if err != nil {
				return err
			}
			s.skipSpace()
			if s.peek() != '=' {
				return fmt.Errorf("expected '=' after key %q", strings.Join(key, "."))
			}
			s.col++
			s.skipSpace()
			v, err := s.value()
			if err != nil {
				return err
			}
			current.Entries = append(current.Entries, &Entry{Key: key, Value: v})
			s.line = v.EndLine + 1
		}
	}
	return nil
}

func isBareKeyChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

// key scans a possibly dotted key.
func (s *scanner) key() ([]string, error) {
	var key []string
	for {
		s.skipSpace()
		line := s.cur()
		if s.col >= len(line) {
			return nil, errors.New("expected key")
		}
		var part string
		switch line[s.col] {
		case '"':
			end, err := basicStringEnd(line, s.col)
			if err != nil {
				return nil, err
			}
			part = unquoteBasic(line[s.col:end])
			s.col = end
		case '\'':
			end := strings.IndexByte(line[s.col+1:], '\'')
			if end < 0 {
				return nil, errors.New("unterminated literal key")
			}
			part = line[s.col+1 : s.col+1+end]
			s.col += end + 2
		default:
			i := s.col
			for i < len(line) && isBareKeyChar(line[i]) {
				i++
			}
			if i == s.col {
				return nil, fmt.Errorf("unexpected character %q in key", line[s.col])
			}
			part = line[s.col:i]
			s.col = i
		}
		key = append(key, part)
		s.skipSpace()
		if s.peek() != '.' {
			return key, nil
		}
		s.col++
	}
}

// value scans the value at the cursor and registers it.
func (s *scanner) value() (*Value, error) {
	rest := s.cur()[s.col:]
	var (
		v   *Value
		err error
	)
	switch {
	case strings.HasPrefix(rest, `"""`):
		v, err = s.multiline(`"""`, true)
	case strings.HasPrefix(rest, `'''`):
		v, err = s.multiline(`'''`, false)
	case strings.HasPrefix(rest, `"`):
		v, err = s.basicString()
	case strings.HasPrefix(rest, `'`):
		v, err = s.literalString()
	case strings.HasPrefix(rest, `[`):
		v, err = s.array()
	case strings.HasPrefix(rest, `{`):
		v, err = s.inlineTable()
	case rest == "":
		return nil, errors.New("expected value")
	default:
		v = s.scalar()
	}
	if err != nil {
		return nil, err
	}
	s.values = append(s.values, v)
	return v, nil
}

// basicStringEnd returns the index just past the closing quote of the basic
// string starting at line[start].
func basicStringEnd(line string, start int) (int, error) {
	for i := start + 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			return i + 1, nil
		}
	}
	return 0, errors.New("unterminated string")
}

// unquoteBasic decodes a single-line basic string including its quotes.
// Escapes Go does not share with TOML leave the text undecoded.
func unquoteBasic(raw string) string {
	if s, err := strconv.Unquote(raw); err == nil {
		return s
	}
	return raw[1 : len(raw)-1]
}

func (s *scanner) basicString() (*Value, error) {
	line := s.cur()
	end, err := basicStringEnd(line, s.col)
	if err != nil {
		return nil, err
	}
	raw := line[s.col:end]
	v := &Value{Kind: KindString, Line: s.line, Start: s.col, EndLine: s.line, End: end, Raw: raw, Str: unquoteBasic(raw)}
	s.col = end
	return v, nil
}

func (s *scanner) literalString() (*Value, error) {
	line := s.cur()
	n := strings.IndexByte(line[s.col+1:], '\'')
	if n < 0 {
		return nil, errors.New("unterminated literal string")
	}
	end := s.col + 1 + n + 1
	raw := line[s.col:end]
	v := &Value{Kind: KindString, Line: s.line, Start: s.col, EndLine: s.line, End: end, Raw: raw, Str: raw[1 : len(raw)-1], Literal: true}
	s.col = end
	return v, nil
}

// multiline scans a """ or ''' string that may span several lines.
func (s *scanner) multiline(delim string, escapes bool) (*Value, error) {
	v := &Value{Kind: KindString, Line: s.line, Start: s.col, Literal: !escapes}
	i := s.col + len(delim)
	for {
		line := s.cur()
		for i < len(line) {
			if escapes && line[i] == '\\' {
				i += 2
				continue
			}
			if strings.HasPrefix(line[i:], delim) {
				end := i + len(delim)
				// Up to two quotes may directly precede the closing delimiter.
				for n := 0; n < 2 && end < len(line) && line[end] == delim[0]; n++ {
					end++
				}
				v.EndLine, v.End = s.line, end
				s.col = end
				v.Raw = spanText(s.lines, v)
				body := v.Raw[len(delim) : len(v.Raw)-len(delim)]
				v.Str = strings.TrimPrefix(strings.TrimPrefix(body, "\r\n"), "\n")
				return v, nil
			}
			i++
		}
		if !s.nextLine() {
			return nil, errors.New("unterminated multi-line string")
		}
		i = 0
	}
}

// skipBlank advances past whitespace, comments and line breaks inside an
// array.
func (s *scanner) skipBlank() error {
	for {
		s.skipSpace()
		switch s.peek() {
		case 0, '#':
			if !s.nextLine() {
				return errors.New("unterminated array")
			}
		default:
			return nil
		}
	}
}

func (s *scanner) array() (*Value, error) {
	v := &Value{Kind: KindArray, Line: s.line, Start: s.col}
	s.col++
	for {
		if err := s.skipBlank(); err != nil {
			return nil, err
		}
		switch s.peek() {
		case ']':
			s.col++
			v.EndLine, v.End = s.line, s.col
			v.Raw = spanText(s.lines, v)
			return v, nil
		case ',':
			s.col++
		default:
			if _, err := s.value(); err != nil {
				return nil, err
			}
		}
	}
}

func (s *scanner) inlineTable() (*Value, error) {
	v := &Value{Kind: KindInlineTable, Line: s.line, Start: s.col}
	s.col++
	for {
		s.skipSpace()
		switch s.peek() {
		case '}':
			s.col++
			v.EndLine, v.End = s.line, s.col
			v.Raw = spanText(s.lines, v)
			return v, nil
		case ',':
			s.col++
			continue
		case 0:
			return nil, errors.New("unterminated inline table")
		}
		key, err := s.key()
		if err != nil {
			return nil, err
		}
		s.skipSpace()
		if s.peek() != '=' {
			return nil, fmt.Errorf("expected '=' after key %q", strings.Join(key, "."))
		}
		s.col++
		s.skipSpace()
		val, err := s.value()
		if err != nil {
			return nil, err
		}
		v.Entries = append(v.Entries, &Entry{Key: key, Value: val})
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// scalar scans a number, boolean or date-time.
func (s *scanner) scalar() *Value {
	line := s.cur()
	i := s.col
	for i < len(line) && !strings.ContainsRune(" \t,]}#", rune(line[i])) {
		i++
	}
	// A local date may be followed by a space and a time.
	if i-s.col == 10 && line[s.col+4] == '-' && i+1 < len(line) && line[i] == ' ' && isDigit(line[i+1]) {
		i++
		for i < len(line) && !strings.ContainsRune(" \t,]}#", rune(line[i])) {
			i++
		}
	}
	raw := line[s.col:i]
	kind := KindOther
	if raw == "true" || raw == "false" {
		kind = KindBool
	}
	v := &Value{Kind: kind, Line: s.line, Start: s.col, EndLine: s.line, End: i, Raw: raw}
	s.col = i
	return v
}

// spanText returns the source text covered by v.
func spanText(lines []string, v *Value) string {
	if v.Line == v.EndLine {
		return lines[v.Line][v.Start:v.End]
	}
	var b strings.Builder
	b.WriteString(lines[v.Line][v.Start:])
	for l := v.Line + 1; l < v.EndLine; l++ {
		b.WriteByte('\n')
		b.WriteString(lines[l])
	}
	b.WriteByte('\n')
	b.WriteString(lines[v.EndLine][:v.End])
	return b.String()
}
