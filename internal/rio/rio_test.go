package rio

import (
	"io"
	"testing"

	"github.com/hyung-hwan/hawk-sub000/internal/value"
)

// fakeIO is a minimal in-memory RecordIO for tests: each stream name
// maps to a pending rune slice (for Read) and an accumulating string
// builder (for Write).
type fakeIO struct {
	pending map[string][]rune
	written map[string]string
	binWritten map[string][]byte
	nextCalls map[string]int
	maxNext   map[string]int
}

func newFakeIO() *fakeIO {
	return &fakeIO{
		pending:    map[string][]rune{},
		written:    map[string]string{},
		binWritten: map[string][]byte{},
		nextCalls:  map[string]int{},
		maxNext:    map[string]int{},
	}
}

func (f *fakeIO) Open(arg *StreamArg) error  { return nil }
func (f *fakeIO) Close(arg *StreamArg, mode CloseMode) error { return nil }
func (f *fakeIO) Flush(arg *StreamArg) error { return nil }

func (f *fakeIO) Read(arg *StreamArg, buf []rune) (int, error) {
	rem := f.pending[arg.Name]
	if len(rem) == 0 {
		return 0, io.EOF
	}
	n := copy(buf, rem)
	f.pending[arg.Name] = rem[n:]
	return n, nil
}

func (f *fakeIO) ReadBytes(arg *StreamArg, buf []byte) (int, error) {
	rem := f.pending[arg.Name]
	if len(rem) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(buf) && n < len(rem) {
		buf[n] = byte(rem[n])
		n++
	}
	f.pending[arg.Name] = rem[n:]
	return n, nil
}

func (f *fakeIO) Write(arg *StreamArg, text string) (int, error) {
	f.written[arg.Name] += text
	return len(text), nil
}

func (f *fakeIO) WriteBytes(arg *StreamArg, data []byte) (int, error) {
	f.binWritten[arg.Name] = append(f.binWritten[arg.Name], data...)
	return len(data), nil
}

func (f *fakeIO) Next(arg *StreamArg) (bool, error) {
	f.nextCalls[arg.Name]++
	return f.nextCalls[arg.Name] <= f.maxNext[arg.Name], nil
}

func (f *fakeIO) feed(name, text string) {
	f.pending[name] = append(f.pending[name], []rune(text)...)
}

func openText(t *testing.T, f *fakeIO, name, text string) *Table {
	t.Helper()
	tab := NewTable(f)
	if _, err := tab.Open(name, TypeFile|ModeRead); err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.feed(name, text)
	return tab
}

func TestReadDefaultRecordSplitsOnNewlineAndStripsCR(t *testing.T) {
	f := newFakeIO()
	tab := openText(t, f, "in", "one\r\ntwo\nthree")

	var got []string
	for {
		rec, ok, err := tab.ReadRecord("in", RS{Kind: RSDefault})
		if err != nil {
			t.Fatalf("ReadRecord: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, rec)
	}
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

func TestReadCharRecord(t *testing.T) {
	f := newFakeIO()
	tab := openText(t, f, "in", "a;b;c")

	var got []string
	for {
		rec, ok, err := tab.ReadRecord("in", RS{Kind: RSChar, Char: ';'})
		if err != nil {
			t.Fatalf("ReadRecord: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, rec)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected records: %v", got)
	}
}

func TestReadParagraphRecordSkipsLeadingBlanksAndSplitsOnBlankLines(t *testing.T) {
	f := newFakeIO()
	tab := openText(t, f, "in", "\n\nfirst\npara\n\n\nsecond\n")

	var got []string
	for {
		rec, ok, err := tab.ReadRecord("in", RS{Kind: RSParagraph})
		if err != nil {
			t.Fatalf("ReadRecord: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, rec)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 paragraphs, got %v", got)
	}
	if got[0] != "first\npara" {
		t.Fatalf("unexpected first paragraph: %q", got[0])
	}
	if got[1] != "second" {
		t.Fatalf("unexpected second paragraph: %q", got[1])
	}
}

func TestSplitFieldsWhitespace(t *testing.T) {
	got, err := SplitFields("  a  b\tc  ", FS{Kind: FSWhitespace})
	if err != nil {
		t.Fatalf("SplitFields: %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected fields: %v", got)
	}
}

func TestSplitFieldsChar(t *testing.T) {
	got, err := SplitFields("a:b::c", FS{Kind: FSChar, Char: ':'})
	if err != nil {
		t.Fatalf("SplitFields: %v", err)
	}
	want := []string{"a", "b", "", "c"}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("field %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitFieldsStructured(t *testing.T) {
	// L='[' R=']' T=',' E='\\'
	fs := FS{Kind: FSStructured, L: '[', R: ']', T: ',', E: '\\'}
	got, err := SplitFields(`[a,b],plain,[c\]d]`, fs)
	if err != nil {
		t.Fatalf("SplitFields: %v", err)
	}
	want := []string{"a,b", "plain", "c]d"}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("field %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitFieldsStructuredUnterminatedQuoteFails(t *testing.T) {
	fs := FS{Kind: FSStructured, L: '[', R: ']', T: ',', E: '\\'}
	if _, err := SplitFields("[unterminated", fs); err == nil {
		t.Fatalf("expected a Perm error for an unterminated quoted field")
	}
}

func TestRecordSetFieldCoherence(t *testing.T) {
	r, err := NewRecord("a b c", FS{Kind: FSWhitespace}, " ")
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	if r.NF() != 3 {
		t.Fatalf("want NF=3, got %d", r.NF())
	}
	if err := r.SetField(2, "X", FS{Kind: FSWhitespace}); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if r.Line() != "a X c" {
		t.Fatalf("want recomposed $0 'a X c', got %q", r.Line())
	}

	if err := r.SetField(5, "Y", FS{Kind: FSWhitespace}); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if r.NF() != 5 {
		t.Fatalf("want NF=5 after expanding, got %d", r.NF())
	}
	if r.Line() != "a X c  Y" {
		t.Fatalf("want 'a X c  Y' (empty-padded), got %q", r.Line())
	}

	if err := r.SetField(0, "p q", FS{Kind: FSWhitespace}); err != nil {
		t.Fatalf("SetField($0): %v", err)
	}
	if r.NF() != 2 || r.Field(1) != "p" || r.Field(2) != "q" {
		t.Fatalf("expected $0 rewrite to resplit into 2 fields, got NF=%d", r.NF())
	}
}

func TestRecordTruncateFields(t *testing.T) {
	r, err := NewRecord("a b c d", FS{Kind: FSWhitespace}, " ")
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	r.TruncateFields(2)
	if r.NF() != 2 || r.Line() != "a b" {
		t.Fatalf("want NF=2 line 'a b', got NF=%d line %q", r.NF(), r.Line())
	}
}

func TestWriteValueDispatchesOnKind(t *testing.T) {
	f := newFakeIO()
	tab := NewTable(f)
	if _, err := tab.Open("out", TypeFile|ModeWrite); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := tab.WriteValue("out", value.MakeStrString("hello"), "%.6g", "%.6g"); err != nil {
		t.Fatalf("WriteValue(str): %v", err)
	}
	if err := tab.WriteValue("out", value.MakeInt(42), "%.6g", "%.6g"); err != nil {
		t.Fatalf("WriteValue(int): %v", err)
	}
	if f.written["out"] != "hello42" {
		t.Fatalf("unexpected written text: %q", f.written["out"])
	}
}

func TestCloseSplitModeOnlyRemovesStreamOnceBothHalvesClosed(t *testing.T) {
	f := newFakeIO()
	tab := NewTable(f)
	if _, err := tab.Open("pipe", TypePipe|ModeRdwr); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := tab.Close("pipe", CloseWrite); err != nil {
		t.Fatalf("Close(write): %v", err)
	}
	if _, ok := tab.Get("pipe"); !ok {
		t.Fatalf("expected stream to remain open after closing only the write half")
	}
	if err := tab.Close("pipe", CloseRead); err != nil {
		t.Fatalf("Close(read): %v", err)
	}
	if _, ok := tab.Get("pipe"); ok {
		t.Fatalf("expected stream to be removed once both halves are closed")
	}
}

func TestNextInputResetsEOF(t *testing.T) {
	f := newFakeIO()
	f.maxNext["in"] = 1
	tab := openText(t, f, "in", "only")
	// Drain to EOF.
	for {
		_, ok, err := tab.ReadRecord("in", RS{Kind: RSDefault})
		if err != nil {
			t.Fatalf("ReadRecord: %v", err)
		}
		if !ok {
			break
		}
	}
	s, _ := tab.Get("in")
	if !s.arg.InEOF {
		t.Fatalf("expected InEOF after draining the stream")
	}
	more, err := tab.Next("in")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !more {
		t.Fatalf("expected Next to report another sibling stream")
	}
	if s.arg.InEOF {
		t.Fatalf("expected Next to reset InEOF")
	}
}
