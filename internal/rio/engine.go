package rio

import (
	"github.com/hyung-hwan/hawk-sub000/internal/diag"
	"github.com/hyung-hwan/hawk-sub000/internal/value"
)

// WriteText implements `write_text(rtx, out_type, name, text)`.
func (t *Table) WriteText(name, text string) error {
	s, ok := t.streams[name]
	if !ok {
		return diag.New(diag.NoEnt, "no open stream %q", name)
	}
	if err := s.lockMode(false); err != nil {
		return err
	}
	if _, err := t.io.Write(s.arg, text); err != nil {
		return diag.Wrap(diag.IoImpl, err, "writing stream %q failed", name)
	}
	return nil
}

// WriteBytes implements `write_bytes(rtx, out_type, name, bytes)`.
func (t *Table) WriteBytes(name string, data []byte) error {
	s, ok := t.streams[name]
	if !ok {
		return diag.New(diag.NoEnt, "no open stream %q", name)
	}
	if err := s.lockMode(true); err != nil {
		return err
	}
	if _, err := t.io.WriteBytes(s.arg, data); err != nil {
		return diag.Wrap(diag.IoImpl, err, "writing stream %q failed", name)
	}
	return nil
}

// WriteValue implements `write_value(rtx, out_type, name, val)`: Char
// and ByteChar write their single unit, Str and Mbs write their
// contents directly, everything else is stringified with OFMT
// print-mode semantics first (spec §4.4 "Write streams").
func (t *Table) WriteValue(name string, v value.Value, convfmt, ofmt string) error {
	switch v.Kind() {
	case value.KByteChar:
		return t.WriteBytes(name, []byte(value.ToStr(v, convfmt, ofmt)))
	default:
		return t.WriteText(name, value.ToStrMode(v, value.ConvPrint, convfmt, ofmt))
	}
}

// ReadBytesRecord implements `read_bytes_record`: a stream locked to
// byte mode reads raw chunks rather than RS-delimited records (spec
// §4.4 "a given stream is locked to text or byte mode on first use").
func (t *Table) ReadBytesRecord(name string, buf []byte) (int, bool, error) {
	s, ok := t.streams[name]
	if !ok {
		return 0, false, diag.New(diag.NoEnt, "no open stream %q", name)
	}
	if err := s.lockMode(true); err != nil {
		return 0, false, err
	}
	if s.arg.InEOS {
		return 0, false, nil
	}
	n, err := t.io.ReadBytes(s.arg, buf)
	if err != nil {
		return 0, false, diag.Wrap(diag.IoImpl, err, "reading stream %q failed", name)
	}
	if n == 0 {
		s.arg.InEOF = true
		return 0, false, nil
	}
	return n, true, nil
}
