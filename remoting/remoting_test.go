package remoting

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/store"
)

// memConn adapts a net.Pipe() half to Conn for handshake/protocol unit
// tests; it exercises the same Read/Write/Close contract a QUIC stream
// does without needing a real socket.
type memConn struct {
	net.Conn
}

func newMemConnPair() (Conn, Conn) {
	a, b := net.Pipe()
	return memConn{a}, memConn{b}
}

func TestClockSyncShortCircuitsOnIdenticalMachine(t *testing.T) {
	server, client := newMemConnPair()
	defer server.Close()
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		done <- ServeClockSync(server, envelope.DateTime(1000), "host-a")
	}()

	offset, err := NegotiateClockOffset(client, "host-a", func() envelope.DateTime { return envelope.DateTime(0) })
	require.NoError(t, err)
	require.Equal(t, envelope.TimeSpan(0), offset)
	require.NoError(t, <-done)
}

func TestClockSyncComputesOffsetForDifferentMachine(t *testing.T) {
	server, client := newMemConnPair()
	defer server.Close()
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		done <- ServeClockSync(server, envelope.DateTime(5_000_000), "host-b")
	}()

	offset, err := NegotiateClockOffset(client, "host-a", func() envelope.DateTime { return envelope.DateTime(1_000_000) })
	require.NoError(t, err)
	// server is ~4_000_000 ticks ahead of the client's send time; rtt
	// correction is small relative to that gap over a local pipe.
	require.Greater(t, int64(offset), int64(3_000_000))
	require.NoError(t, <-done)
}

func TestDataChannelStreamsRecordsIntoStore(t *testing.T) {
	server, client := newMemConnPair()
	defer server.Close()
	defer client.Close()

	dir := t.TempDir()
	dst, err := store.Open(dir, "mirrored", store.RotationPolicy{}, nil)
	require.NoError(t, err)
	defer dst.Close()

	recs := make(chan envelope.Message[[]byte], 2)
	recs <- envelope.NewMessage([]byte("a"), envelope.Envelope{SourceID: 1, SequenceID: 0, OriginatingTime: 1, CreationTime: 1})
	recs <- envelope.NewMessage([]byte("b"), envelope.Envelope{SourceID: 1, SequenceID: 1, OriginatingTime: 2, CreationTime: 2})
	close(recs)

	done := make(chan error, 1)
	go func() {
		done <- StreamRecords(server, recs)
		server.Close()
	}()

	require.NoError(t, ReceiveRecords(client, dst))
	require.NoError(t, <-done)

	paths, err := dst.SegmentPaths()
	require.NoError(t, err)
	require.Len(t, paths, 1)
}

func TestMetaChannelHandshakeStreamsCatalog(t *testing.T) {
	server, client := newMemConnPair()
	defer server.Close()
	defer client.Close()

	srcDir := t.TempDir()
	srcDB, err := store.OpenCatalogDB(srcDir + "/catalog.db")
	require.NoError(t, err)
	defer srcDB.Close()
	require.NoError(t, srcDB.PutStream("accel", store.StreamMetadata{
		Header:       store.Header{Name: "accel", Kind: store.KindStreamMetadata},
		MessageCount: 7,
	}))

	dstDir := t.TempDir()
	dstDB, err := store.OpenCatalogDB(dstDir + "/catalog.db")
	require.NoError(t, err)
	defer dstDB.Close()

	done := make(chan error, 1)
	go func() {
		_, err := ServeMetaChannel(server, "quic", map[string]string{"addr": "127.0.0.1:0"}, srcDB)
		done <- err
	}()

	serverHello, err := DialMetaChannel(client, ClientHello{ReplayStartTicks: ReplayAllFromNow}, dstDB)
	require.NoError(t, err)
	require.Equal(t, "quic", serverHello.TransportName)
	require.NoError(t, <-done)

	got, err := dstDB.Stream("accel")
	require.NoError(t, err)
	require.Equal(t, int64(7), got.MessageCount)
}
