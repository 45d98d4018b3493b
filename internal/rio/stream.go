// Package rio implements hawk's record-I/O engine (spec §4.4): a
// stream table driving an embedder-supplied callback, RS/FS-driven
// record and field splitting, and `$0`/`$n` coherence (§4.4 "Stream
// table": `{type, mode, name, handle, read_buffer, in_eof, in_eos,
// out_eof, out_eos, rwc_mode, rwc_state, is_byte_mode}`).
package rio

import "github.com/hyung-hwan/hawk-sub000/internal/diag"

// StreamType encodes a stream's transport and direction as an ORed
// bitmask (spec §4.4 "type encodes one of {Pipe, File, Console} ORed
// with a {Read, Write, Rdwr} mask").
type StreamType uint32

const (
	TypeFile StreamType = 1 << iota
	TypePipe
	TypeConsole

	ModeRead
	ModeWrite
)

const ModeRdwr = ModeRead | ModeWrite

func (t StreamType) IsRead() bool  { return t&ModeRead != 0 }
func (t StreamType) IsWrite() bool { return t&ModeWrite != 0 }

// CloseMode distinguishes a plain close from a read-write pipe's
// "split close" (spec's supplemented feature C.3, `rwc_mode`): the
// write side is closed first, the read side drained and closed
// second, so exactly one Close callback invocation per half reaches
// the embedder.
type CloseMode int

const (
	CloseBoth CloseMode = iota
	CloseRead
	CloseWrite
)

// Command mirrors spec §6.2's record-I/O callback commands.
type Command int

const (
	CmdOpen Command = iota
	CmdClose
	CmdRead
	CmdWrite
	CmdReadBytes
	CmdWriteBytes
	CmdFlush
	CmdNext
)

// StreamArg is the stream-argument block passed to the embedder
// callback (spec §6.2): `{mode, name, handle, rwc_mode, uflags, type,
// rwc_state, in/out buffers, eof/eos flags}`.
type StreamArg struct {
	Name    string
	Handle  any
	Type    StreamType
	RWCMode CloseMode
	UFlags  uint32
	RWCState int

	InEOF, InEOS   bool
	OutEOF, OutEOS bool
}

// RecordIO is the embedder-supplied callback (spec §6.2). ReadBytes
// and WriteBytes serve a stream locked to byte mode on first use
// (spec §4.4 "a given stream is locked to text or byte mode on first
// use"); Read/Write serve text mode. Next requests the next sibling
// stream in an ARGV-driven traversal (spec §4.4 "next-input /
// next-output").
type RecordIO interface {
	Open(arg *StreamArg) error
	Close(arg *StreamArg, mode CloseMode) error
	Read(arg *StreamArg, buf []rune) (int, error)
	ReadBytes(arg *StreamArg, buf []byte) (int, error)
	Write(arg *StreamArg, text string) (int, error)
	WriteBytes(arg *StreamArg, data []byte) (int, error)
	Flush(arg *StreamArg) error
	Next(arg *StreamArg) (bool, error)
}

// Stream is the engine's bookkeeping for one open stream: the
// callback-facing StreamArg plus a decoded input buffer and record-
// splitting cursor. isByteMode is fixed on the first read/write call
// and subsequent calls of the other kind are rejected with Invalid, per
// spec §4.4 "a given stream is locked to text or byte mode on first
// use".
type Stream struct {
	arg *StreamArg

	readBuf    []rune
	readPos    int
	byteBuf    []byte
	bytePos    int
	modeLocked bool
	isByteMode bool

	rwcMode CloseMode
}

// Table is the interpreter's open-stream registry (spec §4.4's
// implicit "stream table" indexed by name).
type Table struct {
	io      RecordIO
	streams map[string]*Stream
}

// NewTable creates an empty stream table bound to a callback.
func NewTable(io RecordIO) *Table {
	return &Table{io: io, streams: map[string]*Stream{}}
}

// Open opens (or returns the already-open) stream for name.
func (t *Table) Open(name string, typ StreamType) (*Stream, error) {
	if s, ok := t.streams[name]; ok {
		return s, nil
	}
	arg := &StreamArg{Name: name, Type: typ}
	if err := t.io.Open(arg); err != nil {
		return nil, diag.Wrap(diag.IoImpl, err, "opening stream %q failed", name)
	}
	s := &Stream{arg: arg}
	t.streams[name] = s
	return s, nil
}

// Get returns an already-open stream, or false.
func (t *Table) Get(name string) (*Stream, bool) {
	s, ok := t.streams[name]
	return s, ok
}

// lockMode fixes a stream's byte/text mode on first use (spec §4.4).
func (s *Stream) lockMode(byteMode bool) error {
	if !s.modeLocked {
		s.modeLocked = true
		s.isByteMode = byteMode
		return nil
	}
	if s.isByteMode != byteMode {
		return diag.New(diag.Invalid, "stream %q already locked to %s mode", s.arg.Name, modeName(s.isByteMode))
	}
	return nil
}

func modeName(byteMode bool) string {
	if byteMode {
		return "byte"
	}
	return "text"
}

// Close closes a stream per mode (spec's rwc_mode split close, C.3):
// CloseWrite/CloseRead close one half only (for a read-write pipe);
// CloseBoth closes both, or the single transport a non-pipe stream has.
func (t *Table) Close(name string, mode CloseMode) error {
	s, ok := t.streams[name]
	if !ok {
		return diag.New(diag.NoEnt, "no open stream %q", name)
	}
	if err := t.io.Close(s.arg, mode); err != nil {
		return diag.Wrap(diag.IoImpl, err, "closing stream %q failed", name)
	}
	switch mode {
	case CloseRead:
		s.arg.InEOS = true
	case CloseWrite:
		s.arg.OutEOS = true
	default:
		s.arg.InEOS = true
		s.arg.OutEOS = true
	}
	if s.arg.InEOS && s.arg.OutEOS {
		delete(t.streams, name)
	}
	return nil
}

// Flush flushes a single named output stream, or every open output
// stream when name is empty (spec §4.4 "flush(rtx, out_type,
// name_or_all)").
func (t *Table) Flush(name string) error {
	if name != "" {
		s, ok := t.streams[name]
		if !ok {
			return diag.New(diag.NoEnt, "no open stream %q", name)
		}
		return t.flushOne(name, s)
	}
	for n, s := range t.streams {
		if err := t.flushOne(n, s); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) flushOne(name string, s *Stream) error {
	if err := t.io.Flush(s.arg); err != nil {
		return diag.Wrap(diag.IoImpl, err, "flushing stream %q failed", name)
	}
	return nil
}

// Next requests the next sibling stream for ARGV-driven traversal
// (spec §4.4 "next-input / next-output"): success resets eof but
// preserves the chain entry.
func (t *Table) Next(name string) (bool, error) {
	s, ok := t.streams[name]
	if !ok {
		return false, diag.New(diag.NoEnt, "no open stream %q", name)
	}
	more, err := t.io.Next(s.arg)
	if err != nil {
		return false, diag.Wrap(diag.IoImpl, err, "advancing stream %q failed", name)
	}
	if more {
		s.arg.InEOF = false
		s.readBuf = nil
		s.readPos = 0
	}
	return more, nil
}
