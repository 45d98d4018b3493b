package rio

import (
	"strings"

	"github.com/hyung-hwan/hawk-sub000/internal/diag"
	"github.com/hyung-hwan/hawk-sub000/internal/regex"
)

// FSKind selects one of spec §4.4's four FS branches.
type FSKind int

const (
	// FSWhitespace splits on runs of whitespace, with leading and
	// trailing whitespace stripped (the nil/default/" " branch).
	FSWhitespace FSKind = iota
	// FSChar splits strictly on a single non-space byte.
	FSChar
	// FSRegexp tokenises against a compiled pattern.
	FSRegexp
	// FSStructured is the `?LRTE` sentinel: fielding by left-quote,
	// right-quote, terminator, and escape characters rather than by a
	// literal separator (spec §4.4 "this mode is for fields, not
	// records").
	FSStructured
)

// FS configures field splitting (spec §4.4).
type FS struct {
	Kind    FSKind
	Char    rune
	Pattern *regex.Regex

	// L, R, T, E are FSStructured's left-quote, right-quote,
	// terminator, and escape characters.
	L, R, T, E rune
}

// SplitFields splits record into fields per fs. It never returns an
// error for FSWhitespace/FSChar/FSRegexp; FSStructured reports Perm on
// an unterminated quoted field (spec §7 "format/separator misuse
// reports Perm").
func SplitFields(record string, fs FS) ([]string, error) {
	switch fs.Kind {
	case FSChar:
		return splitFieldsChar(record, fs.Char), nil
	case FSRegexp:
		return splitFieldsRegex(record, fs.Pattern), nil
	case FSStructured:
		return splitFieldsStructured(record, fs)
	default:
		return splitFieldsWhitespace(record), nil
	}
}

func splitFieldsWhitespace(record string) []string {
	return strings.Fields(record)
}

func splitFieldsChar(record string, sep rune) []string {
	if record == "" {
		return nil
	}
	return strings.Split(record, string(sep))
}

// splitFieldsRegex tokenises record by repeatedly finding the leftmost
// match of pat and emitting the text before it as a field, using
// submatch positions from pat.FindLongestFrom to locate each
// separator.
func splitFieldsRegex(record string, pat *regex.Regex) []string {
	if record == "" {
		return nil
	}
	runes := []rune(record)
	var fields []string
	pos := 0
	for pos <= len(runes) {
		res, start, ok := pat.FindLongestFrom(runes, pos, false)
		if !ok {
			fields = append(fields, string(runes[pos:]))
			break
		}
		end := res.Submatches[0][1]
		if end == start {
			// A zero-width separator match can't split anything;
			// treat the remainder as the last field.
			fields = append(fields, string(runes[pos:]))
			break
		}
		fields = append(fields, string(runes[pos:start]))
		pos = end
	}
	return fields
}

// splitFieldsStructured implements the `?LRTE` sentinel: each field is
// either a bare run up to T, or a quoted run between L and R (T
// immediately after the closing R ends the field), with E escaping the
// following character inside a quoted field.
func splitFieldsStructured(record string, fs FS) ([]string, error) {
	runes := []rune(record)
	var fields []string
	i := 0
	for i < len(runes) {
		if runes[i] == fs.L {
			i++
			var sb strings.Builder
			closed := false
			for i < len(runes) {
				switch {
				case runes[i] == fs.E && i+1 < len(runes):
					sb.WriteRune(runes[i+1])
					i += 2
				case runes[i] == fs.R:
					i++
					closed = true
				default:
					sb.WriteRune(runes[i])
					i++
				}
				if closed {
					break
				}
			}
			if !closed {
				return nil, diag.New(diag.Perm, "unterminated quoted field in structured FS")
			}
			fields = append(fields, sb.String())
			if i < len(runes) && runes[i] == fs.T {
				i++
			}
			continue
		}
		var sb strings.Builder
		for i < len(runes) && runes[i] != fs.T {
			sb.WriteRune(runes[i])
			i++
		}
		fields = append(fields, sb.String())
		if i < len(runes) {
			i++
		}
	}
	return fields, nil
}

// Record holds a $0/$n-coherent field set (spec §4.4's "`$0`/`$n`
// coherence" invariant: `$0` always equals `$1..$NF` joined by OFS).
type Record struct {
	line   string
	fields []string
	ofs    string
}

// NewRecord builds a coherent Record by splitting line with fs.
func NewRecord(line string, fs FS, ofs string) (*Record, error) {
	fields, err := SplitFields(line, fs)
	if err != nil {
		return nil, err
	}
	return &Record{line: line, fields: fields, ofs: ofs}, nil
}

// Line returns the current `$0`.
func (r *Record) Line() string { return r.line }

// NF returns the current `$NF` count.
func (r *Record) NF() int { return len(r.fields) }

// Field returns `$n` (n==0 is `$0`; out-of-range n returns "").
func (r *Record) Field(n int) string {
	if n == 0 {
		return r.line
	}
	if n < 1 || n > len(r.fields) {
		return ""
	}
	return r.fields[n-1]
}

// SetField implements `set_field(rtx, index, text, prefer_number)`:
// index 0 replaces `$0` and resplits per fs; n>0 replaces `$n`,
// expanding the fields vector with empty strings first if n > NF, and
// recomposes `$0` from OFS-joined fields.
func (r *Record) SetField(index int, text string, fs FS) error {
	if index == 0 {
		fields, err := SplitFields(text, fs)
		if err != nil {
			return err
		}
		r.line = text
		r.fields = fields
		return nil
	}
	if index < 0 {
		return diag.New(diag.Invalid, "negative field index %d", index)
	}
	for len(r.fields) < index {
		r.fields = append(r.fields, "")
	}
	r.fields[index-1] = text
	r.rebuild()
	return nil
}

// TruncateFields implements `truncate_fields(rtx, new_count)`: drops
// fields beyond newCount and rebuilds `$0` from the survivors.
func (r *Record) TruncateFields(newCount int) {
	if newCount < 0 {
		newCount = 0
	}
	if newCount < len(r.fields) {
		r.fields = r.fields[:newCount]
	} else {
		for len(r.fields) < newCount {
			r.fields = append(r.fields, "")
		}
	}
	r.rebuild()
}

func (r *Record) rebuild() {
	r.line = strings.Join(r.fields, r.ofs)
}
