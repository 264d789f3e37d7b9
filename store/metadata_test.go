package store

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
)

func TestCatalogRecordRoundTripsStreamMetadata(t *testing.T) {
	typeName := "int32"
	sm := StreamMetadata{
		Header: Header{
			Name:        "accel",
			ID:          1,
			TypeName:    &typeName,
			Version:     1,
			CustomFlags: uint16(FlagIndexed | FlagClosed),
			Kind:        KindStreamMetadata,
		},
		OpenedTime:       10,
		ClosedTime:       20,
		MessageCount:     4,
		CumulativeSize:   400,
		CumulativeLatency: 40,
		FirstOriginating: 10,
		LastOriginating:  19,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCatalogRecord(&buf, CatalogRecord{Header: sm.Header, StreamMetadata: &sm}))
	require.NoError(t, WriteCatalogIntermission(&buf))

	rec, ok, err := ReadCatalogRecord(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "accel", rec.Header.Name)
	require.Equal(t, KindStreamMetadata, rec.Header.Kind)
	require.NotNil(t, rec.StreamMetadata)
	require.Equal(t, int64(4), rec.StreamMetadata.MessageCount)
	require.Equal(t, envelope.TimeSpan(10), rec.StreamMetadata.AverageLatency())

	_, ok, err = ReadCatalogRecord(&buf)
	require.NoError(t, err)
	require.False(t, ok, "intermission marker should report ok=false")
}

func TestCatalogRecordRoundTripsRuntimeInfo(t *testing.T) {
	ri := RuntimeInfo{
		Header:      Header{Name: "session", Kind: KindRuntimeInfo},
		MachineName: "host-1",
		StartedTime: 5,
		Properties:  map[string]string{"os": "linux"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCatalogRecord(&buf, CatalogRecord{Header: ri.Header, RuntimeInfo: &ri}))

	rec, ok, err := ReadCatalogRecord(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, rec.RuntimeInfo)
	require.Equal(t, "host-1", rec.RuntimeInfo.MachineName)
	require.Equal(t, "linux", rec.RuntimeInfo.Properties["os"])
}
