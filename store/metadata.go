package store

import (
	"fmt"
	"io"

	"github.com/tempopipe/tempopipe/envelope"
)

// Kind discriminates a catalog metadata record's shape.
type Kind uint16

const (
	KindStreamMetadata Kind = iota
	KindRuntimeInfo
	KindTypeSchema
)

// StreamFlags are the 16-bit custom flags carried by a StreamMetadata
// record (spec §6).
type StreamFlags uint16

const (
	FlagNotPersisted StreamFlags = 0x01
	FlagClosed       StreamFlags = 0x02
	FlagIndexed      StreamFlags = 0x04
	FlagPolymorphic  StreamFlags = 0x08
)

// Header is the shared prefix of every catalog metadata record.
type Header struct {
	Name                       string
	ID                         int32
	TypeName                   *string
	Version                    int32
	SerializerName             *string
	SerializationSystemVersion int32
	CustomFlags                uint16
	Kind                       Kind
}

func (h Header) write(w *envelope.Writer) {
	name := h.Name
	w.WriteString(&name)
	w.WriteInt32(h.ID)
	w.WriteString(h.TypeName)
	w.WriteInt32(h.Version)
	w.WriteString(h.SerializerName)
	w.WriteInt32(h.SerializationSystemVersion)
	w.WriteUint16(h.CustomFlags)
	w.WriteUint16(uint16(h.Kind))
}

func readHeader(r *envelope.Reader) (Header, error) {
	var h Header
	name, err := r.ReadString()
	if err != nil {
		return h, err
	}
	if name != nil {
		h.Name = *name
	}
	if h.ID, err = r.ReadInt32(); err != nil {
		return h, err
	}
	if h.TypeName, err = r.ReadString(); err != nil {
		return h, err
	}
	if h.Version, err = r.ReadInt32(); err != nil {
		return h, err
	}
	if h.SerializerName, err = r.ReadString(); err != nil {
		return h, err
	}
	if h.SerializationSystemVersion, err = r.ReadInt32(); err != nil {
		return h, err
	}
	if h.CustomFlags, err = r.ReadUint16(); err != nil {
		return h, err
	}
	kind, err := r.ReadUint16()
	if err != nil {
		return h, err
	}
	h.Kind = Kind(kind)
	return h, nil
}

// StreamMetadata is a StreamMetadata-kind catalog record: everything the
// catalog tracks about one persisted stream.
type StreamMetadata struct {
	Header

	OpenedTime        envelope.DateTime
	ClosedTime        envelope.DateTime
	MessageCount      int64
	CumulativeSize    int64
	CumulativeLatency envelope.TimeSpan
	FirstOriginating  envelope.DateTime
	LastOriginating   envelope.DateTime
	FirstCreation     envelope.DateTime
	LastCreation      envelope.DateTime
	Supplemental      []byte
}

// AverageLatency is derived on read, never stored.
func (m StreamMetadata) AverageLatency() envelope.TimeSpan {
	if m.MessageCount == 0 {
		return 0
	}
	return envelope.TimeSpan(int64(m.CumulativeLatency) / m.MessageCount)
}

// AverageMessageSize is derived on read, never stored.
func (m StreamMetadata) AverageMessageSize() float64 {
	if m.MessageCount == 0 {
		return 0
	}
	return float64(m.CumulativeSize) / float64(m.MessageCount)
}

func (m StreamMetadata) encode() []byte {
	w := envelope.NewWriter(128)
	m.Header.write(w)
	w.WriteDateTime(m.OpenedTime)
	w.WriteDateTime(m.ClosedTime)
	w.WriteInt64(m.MessageCount)
	w.WriteInt64(m.CumulativeSize)
	w.WriteInt64(int64(m.CumulativeLatency))
	w.WriteDateTime(m.FirstOriginating)
	w.WriteDateTime(m.LastOriginating)
	w.WriteDateTime(m.FirstCreation)
	w.WriteDateTime(m.LastCreation)
	w.WriteInt32(int32(len(m.Supplemental)))
	w.WriteBytes(m.Supplemental)
	return w.Bytes()
}

func decodeStreamMetadata(h Header, r *envelope.Reader) (StreamMetadata, error) {
	m := StreamMetadata{Header: h}
	var err error
	if m.OpenedTime, err = r.ReadDateTime(); err != nil {
		return m, err
	}
	if m.ClosedTime, err = r.ReadDateTime(); err != nil {
		return m, err
	}
	if m.MessageCount, err = r.ReadInt64(); err != nil {
		return m, err
	}
	if m.CumulativeSize, err = r.ReadInt64(); err != nil {
		return m, err
	}
	lat, err := r.ReadInt64()
	if err != nil {
		return m, err
	}
	m.CumulativeLatency = envelope.TimeSpan(lat)
	if m.FirstOriginating, err = r.ReadDateTime(); err != nil {
		return m, err
	}
	if m.LastOriginating, err = r.ReadDateTime(); err != nil {
		return m, err
	}
	if m.FirstCreation, err = r.ReadDateTime(); err != nil {
		return m, err
	}
	if m.LastCreation, err = r.ReadDateTime(); err != nil {
		return m, err
	}
	n, err := r.ReadInt32()
	if err != nil {
		return m, err
	}
	if n > 0 {
		m.Supplemental = make([]byte, n)
		if err := r.ReadBytes(m.Supplemental); err != nil {
			return m, err
		}
	}
	return m, nil
}

// RuntimeInfo is a RuntimeInfo-kind catalog record: process/runtime
// provenance for a capture session (host name, start time, arbitrary
// key/value properties).
type RuntimeInfo struct {
	Header
	MachineName string
	StartedTime envelope.DateTime
	Properties  map[string]string
}

func (ri RuntimeInfo) encode() []byte {
	w := envelope.NewWriter(128)
	ri.Header.write(w)
	machine := ri.MachineName
	w.WriteString(&machine)
	w.WriteDateTime(ri.StartedTime)
	w.WriteInt32(int32(len(ri.Properties)))
	for k, v := range ri.Properties {
		kk, vv := k, v
		w.WriteString(&kk)
		w.WriteString(&vv)
	}
	return w.Bytes()
}

func decodeRuntimeInfo(h Header, r *envelope.Reader) (RuntimeInfo, error) {
	ri := RuntimeInfo{Header: h, Properties: map[string]string{}}
	machine, err := r.ReadString()
	if err != nil {
		return ri, err
	}
	if machine != nil {
		ri.MachineName = *machine
	}
	if ri.StartedTime, err = r.ReadDateTime(); err != nil {
		return ri, err
	}
	n, err := r.ReadInt32()
	if err != nil {
		return ri, err
	}
	for i := int32(0); i < n; i++ {
		k, err := r.ReadString()
		if err != nil {
			return ri, err
		}
		v, err := r.ReadString()
		if err != nil {
			return ri, err
		}
		var ks, vs string
		if k != nil {
			ks = *k
		}
		if v != nil {
			vs = *v
		}
		ri.Properties[ks] = vs
	}
	return ri, nil
}

// CatalogRecord is a decoded catalog entry: exactly one of
// StreamMetadata, RuntimeInfo, or TypeSchemaBytes is meaningful,
// selected by Header.Kind.
type CatalogRecord struct {
	Header
	StreamMetadata *StreamMetadata
	RuntimeInfo    *RuntimeInfo
	// TypeSchemaBytes carries the serialize.TypeSchema encoded form;
	// store does not import the serialize package to avoid a cycle, so
	// callers that need the typed schema re-decode these bytes.
	TypeSchemaBytes []byte
}

// WriteCatalogRecord writes one length-prefixed catalog entry (spec §6:
// "each prefixed by a 32-bit length").
func WriteCatalogRecord(w io.Writer, rec CatalogRecord) error {
	var body []byte
	switch rec.Header.Kind {
	case KindStreamMetadata:
		body = rec.StreamMetadata.encode()
	case KindRuntimeInfo:
		body = rec.RuntimeInfo.encode()
	case KindTypeSchema:
		lw := envelope.NewWriter(len(rec.TypeSchemaBytes) + 32)
		rec.Header.write(lw)
		lw.WriteInt32(int32(len(rec.TypeSchemaBytes)))
		lw.WriteBytes(rec.TypeSchemaBytes)
		body = lw.Bytes()
	default:
		return fmt.Errorf("store: unknown catalog record kind %d", rec.Header.Kind)
	}
	var lenBuf [4]byte
	putUint32LE(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// WriteCatalogIntermission writes the zero-length marker that ends a
// batch of catalog records (spec §6).
func WriteCatalogIntermission(w io.Writer) error {
	var lenBuf [4]byte
	_, err := w.Write(lenBuf[:])
	return err
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// ReadCatalogRecord reads one length-prefixed catalog entry. A
// zero-length record reports ok=false (the intermission marker) rather
// than an error.
func ReadCatalogRecord(r io.Reader) (rec CatalogRecord, ok bool, err error) {
	var lenBuf [4]byte
	if _, err = io.ReadFull(r, lenBuf[:]); err != nil {
		return CatalogRecord{}, false, err
	}
	length := uint32(lenBuf[0]) | uint32(lenBuf[1])<<8 | uint32(lenBuf[2])<<16 | uint32(lenBuf[3])<<24
	if length == 0 {
		return CatalogRecord{}, false, nil
	}
	body := make([]byte, length)
	if _, err = io.ReadFull(r, body); err != nil {
		return CatalogRecord{}, false, err
	}
	br := envelope.NewReader(body)
	h, err := readHeader(br)
	if err != nil {
		return CatalogRecord{}, false, err
	}
	rec = CatalogRecord{Header: h}
	switch h.Kind {
	case KindStreamMetadata:
		sm, err := decodeStreamMetadata(h, br)
		if err != nil {
			return CatalogRecord{}, false, err
		}
		rec.StreamMetadata = &sm
	case KindRuntimeInfo:
		ri, err := decodeRuntimeInfo(h, br)
		if err != nil {
			return CatalogRecord{}, false, err
		}
		rec.RuntimeInfo = &ri
	case KindTypeSchema:
		n, err := br.ReadInt32()
		if err != nil {
			return CatalogRecord{}, false, err
		}
		buf := make([]byte, n)
		if err := br.ReadBytes(buf); err != nil {
			return CatalogRecord{}, false, err
		}
		rec.TypeSchemaBytes = buf
	default:
		return CatalogRecord{}, false, fmt.Errorf("store: unknown catalog record kind %d", h.Kind)
	}
	return rec, true, nil
}
