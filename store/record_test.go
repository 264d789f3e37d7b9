package store

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
)

func TestWriteReadRecordRoundTrips(t *testing.T) {
	env := envelope.Envelope{SourceID: 3, SequenceID: 7, OriginatingTime: 100, CreationTime: 105}
	payload := []byte("hello stream")

	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, env, payload))

	gotEnv, gotPayload, err := ReadRecord(&buf)
	require.NoError(t, err)
	require.Equal(t, env, gotEnv)
	require.Equal(t, payload, gotPayload)
}

func TestReadRecordRejectsOversizedLength(t *testing.T) {
	env := envelope.Envelope{SourceID: 1, OriginatingTime: 1, CreationTime: 1}
	var buf bytes.Buffer
	w := envelope.NewWriter(envelope.Size + 4)
	w.WriteEnvelope(env)
	w.WriteInt32(int32(MaxRecordBytes) + 1)
	buf.Write(w.Bytes())

	_, _, err := ReadRecord(&buf)
	require.ErrorIs(t, err, ErrRecordTooLarge)
}

func TestWriteReadMultipleRecordsSequentially(t *testing.T) {
	var buf bytes.Buffer
	envs := []envelope.Envelope{
		{SourceID: 1, SequenceID: 0, OriginatingTime: 1, CreationTime: 1},
		{SourceID: 1, SequenceID: 1, OriginatingTime: 2, CreationTime: 2},
	}
	for _, e := range envs {
		require.NoError(t, WriteRecord(&buf, e, []byte{byte(e.SequenceID)}))
	}
	for _, want := range envs {
		gotEnv, gotPayload, err := ReadRecord(&buf)
		require.NoError(t, err)
		require.Equal(t, want, gotEnv)
		require.Equal(t, []byte{byte(want.SequenceID)}, gotPayload)
	}
}
