// Package sqlbind binds identifiers and values into SQL templates.
//
// A template marks identifiers with `??` and values with `?`. Arguments are
// consumed in marker order: identifier markers take an Ident, value markers
// take anything else. Rendering quotes identifiers for the target dialect and
// replaces value markers with driver placeholders; values themselves never
// enter the SQL text. Only quoted text shields a `?` from binding; SQL
// comments are not recognized, so templates must not contain them.
package sqlbind

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidIdentifier is returned for names that cannot be quoted safely.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrArgumentMismatch is returned when markers and arguments disagree.
	ErrArgumentMismatch = errors.New("argument mismatch")
	// ErrUnterminated is returned for a quoted section with no closing quote.
	ErrUnterminated = errors.New("unterminated quoted text")
)

// Ident is an identifier argument. Only Ident values may fill `??` markers.
type Ident string

// Statement is a SQL template and its ordered arguments.
type Statement struct {
	Text string
	Args []any
}

// New creates a statement from a template and its arguments.
func New(text string, args ...any) Statement {
	return Statement{Text: text, Args: args}
}

// Append adds template text and the arguments for its markers.
func (s *Statement) Append(text string, args ...any) {
	s.Text += text
	s.Args = append(s.Args, args...)
}

func (s Statement) String() string {
	return s.Text
}

// Render produces executable SQL and the driver arguments for the dialect.
// Markers inside quoted sections of the template are left untouched;
// markers inside comments are not.
func (s Statement) Render(d Dialect) (string, []any, error) {
	var b strings.Builder
	b.Grow(len(s.Text) + 16)
	out := make([]any, 0, len(s.Args))
	text := s.Text
	next := 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '\'', '"', '`':
			end := skipQuoted(text, i)
			if end < 0 {
				return "", nil, fmt.Errorf("%w: quote at offset %d", ErrUnterminated, i)
			}
			b.WriteString(text[i:end])
			i = end - 1
			continue
		case '?':
			if next >= len(s.Args) {
				return "", nil, fmt.Errorf("%w: marker at offset %d has no argument", ErrArgumentMismatch, i)
			}
			arg := s.Args[next]
			next++

			if i+1 < len(text) && text[i+1] == '?' {
				i++
				id, ok := arg.(Ident)
				if !ok {
					return "", nil, fmt.Errorf("%w: identifier marker %d bound to a %T value", ErrArgumentMismatch, next, arg)
				}
				quoted, err := d.QuoteIdent(string(id))
				if err != nil {
					return "", nil, err
				}
				b.WriteString(quoted)
				continue
			}

			if id, ok := arg.(Ident); ok {
				return "", nil, fmt.Errorf("%w: value marker %d bound to identifier %q", ErrArgumentMismatch, next, string(id))
			}
			out = append(out, arg)
			b.WriteString(d.Placeholder(len(out)))
			continue
		}
		b.WriteByte(c)
	}

	if next != len(s.Args) {
		return "", nil, fmt.Errorf("%w: %d arguments for %d markers", ErrArgumentMismatch, len(s.Args), next)
	}
	return b.String(), out, nil
}

// skipQuoted returns the offset just past the quoted section starting at
// start, or -1 when it never closes. A doubled quote is an escaped quote.
func skipQuoted(text string, start int) int {
	quote := text[start]
	for i := start + 1; i < len(text); i++ {
		if text[i] != quote {
			continue
		}
		if i+1 < len(text) && text[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return -1
}
