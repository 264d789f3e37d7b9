// Package store implements the persisted message-record format and its
// catalog of stream/schema metadata (spec §4.G, §6): a sequence of
// (envelope, length, bytes) records plus a separately-maintained catalog,
// with the same on-wire layout reused by the remoting bridge.
package store

import (
	"errors"
	"io"

	"github.com/tempopipe/tempopipe/envelope"
)

// ErrRecordTooLarge guards against a corrupt or adversarial length
// prefix causing an unbounded allocation on read.
var ErrRecordTooLarge = errors.New("store: record length exceeds maximum")

// MaxRecordBytes bounds a single record's payload length accepted by
// ReadRecord.
const MaxRecordBytes = 256 << 20 // 256 MiB

// WriteRecord writes one persisted message record: the packed 24-byte
// envelope, a little-endian i32 payload length, then the payload bytes
// verbatim (spec §6, identical for on-disk and on-wire messages).
func WriteRecord(w io.Writer, env envelope.Envelope, payload []byte) error {
	buf := envelope.NewWriter(envelope.Size + 4 + len(payload))
	buf.WriteEnvelope(env)
	buf.WriteInt32(int32(len(payload)))
	buf.WriteBytes(payload)
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadRecord reads one persisted message record, returning the envelope
// and payload bytes. io.EOF is returned (unwrapped) when r is exhausted
// exactly at a record boundary.
func ReadRecord(r io.Reader) (envelope.Envelope, []byte, error) {
	var head [envelope.Size + 4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return envelope.Envelope{}, nil, err
	}
	er := envelope.NewReader(head[:])
	env, err := er.ReadEnvelope()
	if err != nil {
		return envelope.Envelope{}, nil, err
	}
	length, err := er.ReadInt32()
	if err != nil {
		return envelope.Envelope{}, nil, err
	}
	if length < 0 || int64(length) > MaxRecordBytes {
		return envelope.Envelope{}, nil, ErrRecordTooLarge
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return envelope.Envelope{}, nil, err
	}
	return env, payload, nil
}

// recordHeaderSize is the fixed portion of a record's on-disk size,
// used by rotation accounting.
const recordHeaderSize = envelope.Size + 4
