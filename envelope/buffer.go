package envelope

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrReadPastEnd is returned by Reader methods when more bytes are
// requested than remain in the buffer.
var ErrReadPastEnd = errors.New("envelope: read past end of buffer")

// Writer is a fixed little-endian, unpadded binary writer over a
// resizable byte slice. It is the bit-exact boundary every persisted
// record and every wire message passes through unchanged (spec §4.A).
type Writer struct {
	buf []byte
	pos int
}

// NewWriter returns a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	if capacity < 16 {
		capacity = 16
	}
	return &Writer{buf: make([]byte, capacity)}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.pos }

// Bytes returns the written portion of the underlying buffer. The
// returned slice aliases the Writer's storage and must not be retained
// across further writes.
func (w *Writer) Bytes() []byte { return w.buf[:w.pos] }

// Reset rewinds the writer to the beginning without releasing capacity.
func (w *Writer) Reset() { w.pos = 0 }

func (w *Writer) grow(n int) {
	need := w.pos + n
	if need <= len(w.buf) {
		return
	}
	newCap := len(w.buf) * 2
	if newCap < need {
		newCap = need
	}
	nb := make([]byte, newCap)
	copy(nb, w.buf[:w.pos])
	w.buf = nb
}

func (w *Writer) WriteBytes(b []byte) {
	w.grow(len(b))
	copy(w.buf[w.pos:], b)
	w.pos += len(b)
}

func (w *Writer) WriteInt8(v int8)   { w.grow(1); w.buf[w.pos] = byte(v); w.pos++ }
func (w *Writer) WriteUint8(v uint8) { w.grow(1); w.buf[w.pos] = v; w.pos++ }

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

func (w *Writer) WriteInt16(v int16)   { w.WriteUint16(uint16(v)) }
func (w *Writer) WriteUint16(v uint16) {
	w.grow(2)
	binary.LittleEndian.PutUint16(w.buf[w.pos:], v)
	w.pos += 2
}

func (w *Writer) WriteInt32(v int32)   { w.WriteUint32(uint32(v)) }
func (w *Writer) WriteUint32(v uint32) {
	w.grow(4)
	binary.LittleEndian.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
}

func (w *Writer) WriteInt64(v int64)   { w.WriteUint64(uint64(v)) }
func (w *Writer) WriteUint64(v uint64) {
	w.grow(8)
	binary.LittleEndian.PutUint64(w.buf[w.pos:], v)
	w.pos += 8
}

func (w *Writer) WriteFloat32(v float32) { w.WriteUint32(math.Float32bits(v)) }
func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// WriteChar writes a single UTF-16 code unit, matching the source
// platform's 16-bit char representation.
func (w *Writer) WriteChar(r rune) { w.WriteUint16(uint16(r)) }

// WriteDateTime writes a DateTime as its raw i64 tick count.
func (w *Writer) WriteDateTime(d DateTime) { w.WriteInt64(int64(d)) }

// WriteString writes a length-prefixed UTF-8 string. A nil s writes a
// -1 length prefix and no bytes.
func (w *Writer) WriteString(s *string) {
	if s == nil {
		w.WriteInt32(-1)
		return
	}
	b := []byte(*s)
	w.WriteInt32(int32(len(b)))
	w.WriteBytes(b)
}

// WriteEnvelope writes the packed 24-byte Envelope layout exactly.
func (w *Writer) WriteEnvelope(e Envelope) {
	w.WriteInt32(e.SourceID)
	w.WriteInt32(e.SequenceID)
	w.WriteDateTime(e.OriginatingTime)
	w.WriteDateTime(e.CreationTime)
}

// Reader is the symmetric counterpart to Writer: a cursor over an
// existing byte slice that fails with ErrReadPastEnd rather than
// panicking when asked to read past what remains.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for reading. b is not copied.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) error {
	if n > r.Remaining() {
		return ErrReadPastEnd
	}
	return nil
}

func (r *Reader) ReadBytes(dst []byte) error {
	if err := r.need(len(dst)); err != nil {
		return err
	}
	copy(dst, r.buf[r.pos:r.pos+len(dst)])
	r.pos += len(dst)
	return nil
}

func (r *Reader) ReadInt8() (int8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := int8(r.buf[r.pos])
	r.pos++
	return v, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	return v != 0, err
}

func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

func (r *Reader) ReadChar() (rune, error) {
	v, err := r.ReadUint16()
	return rune(v), err
}

func (r *Reader) ReadDateTime() (DateTime, error) {
	v, err := r.ReadInt64()
	return DateTime(v), err
}

// ReadString reads a length-prefixed UTF-8 string, returning nil if the
// length prefix was -1.
func (r *Reader) ReadString() (*string, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	s := string(b)
	return &s, nil
}

// ReadEnvelope reads the packed 24-byte Envelope layout exactly.
func (r *Reader) ReadEnvelope() (Envelope, error) {
	var e Envelope
	var err error
	if e.SourceID, err = r.ReadInt32(); err != nil {
		return e, err
	}
	if e.SequenceID, err = r.ReadInt32(); err != nil {
		return e, err
	}
	if e.OriginatingTime, err = r.ReadDateTime(); err != nil {
		return e, err
	}
	if e.CreationTime, err = r.ReadDateTime(); err != nil {
		return e, err
	}
	return e, nil
}
