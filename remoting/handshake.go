package remoting

import (
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/gofrs/uuid"
	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/store"
)

// ReplayAllFromNow is the sentinel ClientHello.ReplayStartTicks value
// meaning "start from the exporter's current time" (spec §6).
const ReplayAllFromNow int64 = -1

// ClientHello is the meta-channel request a store importer sends first.
type ClientHello struct {
	ProtocolVersion   int16
	ReplayStartTicks  int64
	ReplayEndTicks    int64
}

func writeClientHello(w io.Writer, h ClientHello) error {
	buf := envelope.NewWriter(2 + 8 + 8)
	buf.WriteInt16(h.ProtocolVersion)
	buf.WriteInt64(h.ReplayStartTicks)
	buf.WriteInt64(h.ReplayEndTicks)
	_, err := w.Write(buf.Bytes())
	return err
}

func readClientHello(r io.Reader) (ClientHello, error) {
	var raw [2 + 8 + 8]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return ClientHello{}, err
	}
	rd := envelope.NewReader(raw[:])
	var h ClientHello
	var err error
	if h.ProtocolVersion, err = rd.ReadInt16(); err != nil {
		return h, err
	}
	if h.ReplayStartTicks, err = rd.ReadInt64(); err != nil {
		return h, err
	}
	if h.ReplayEndTicks, err = rd.ReadInt64(); err != nil {
		return h, err
	}
	return h, nil
}

// ServerHello is the meta-channel reply: a fresh session identity plus
// which transport/params the data channel will use. TransportParams is
// a free-form bag (listen address, stream ids, ...), cbor-encoded since
// its shape varies by Transport.
type ServerHello struct {
	SessionGUID      uuid.UUID
	TransportName    string
	TransportParams  map[string]string
}

func writeServerHello(w io.Writer, h ServerHello) error {
	params, err := cbor.Marshal(h.TransportParams)
	if err != nil {
		return err
	}
	body := envelope.NewWriter(16 + len(h.TransportName) + len(params) + 16)
	body.WriteBytes(h.SessionGUID.Bytes())
	name := h.TransportName
	body.WriteString(&name)
	body.WriteInt32(int32(len(params)))
	body.WriteBytes(params)

	frame := envelope.NewWriter(body.Len() + 4)
	frame.WriteInt32(int32(body.Len()))
	frame.WriteBytes(body.Bytes())
	_, err = w.Write(frame.Bytes())
	return err
}

func readServerHello(r io.Reader) (ServerHello, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return ServerHello{}, err
	}
	length := int32(lenBuf[0]) | int32(lenBuf[1])<<8 | int32(lenBuf[2])<<16 | int32(lenBuf[3])<<24
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return ServerHello{}, err
	}
	rd := envelope.NewReader(body)
	var h ServerHello
	var guidBytes [16]byte
	if err := rd.ReadBytes(guidBytes[:]); err != nil {
		return h, err
	}
	guid, err := uuid.FromBytes(guidBytes[:])
	if err != nil {
		return h, err
	}
	h.SessionGUID = guid
	name, err := rd.ReadString()
	if err != nil {
		return h, err
	}
	if name != nil {
		h.TransportName = *name
	}
	n, err := rd.ReadInt32()
	if err != nil {
		return h, err
	}
	params := make([]byte, n)
	if err := rd.ReadBytes(params); err != nil {
		return h, err
	}
	if err := cbor.Unmarshal(params, &h.TransportParams); err != nil {
		return h, err
	}
	return h, nil
}

// ServeMetaChannel runs the exporter side of the meta-channel handshake
// on conn, then streams every catalog record from db, terminated by the
// intermission marker, and returns the negotiated session GUID.
func ServeMetaChannel(conn Conn, transportName string, transportParams map[string]string, db *store.CatalogDB) (uuid.UUID, error) {
	hello, err := readClientHello(conn)
	if err != nil {
		return uuid.UUID{}, err
	}
	if hello.ProtocolVersion != ProtocolVersion {
		return uuid.UUID{}, ErrProtocolVersionMismatch
	}
	sessionGUID, err := uuid.NewV4()
	if err != nil {
		return uuid.UUID{}, err
	}
	if err := writeServerHello(conn, ServerHello{
		SessionGUID:     sessionGUID,
		TransportName:   transportName,
		TransportParams: transportParams,
	}); err != nil {
		return uuid.UUID{}, err
	}
	if err := streamCatalog(conn, db); err != nil {
		return uuid.UUID{}, err
	}
	return sessionGUID, nil
}

// streamCatalog writes every known stream's metadata record followed by
// the zero-length intermission marker (spec §6: "the pattern repeats
// whenever the catalog grows" — callers re-invoke streamCatalog to push
// later growth over the same conn).
func streamCatalog(conn Conn, db *store.CatalogDB) error {
	names, err := db.Streams()
	if err != nil {
		return err
	}
	for _, name := range names {
		meta, err := db.Stream(name)
		if err != nil {
			return err
		}
		rec := store.CatalogRecord{Header: meta.Header, StreamMetadata: &meta}
		if err := store.WriteCatalogRecord(conn, rec); err != nil {
			return err
		}
	}
	return store.WriteCatalogIntermission(conn)
}

// DialMetaChannel runs the importer side of the meta-channel handshake,
// writing every received catalog record into db.
func DialMetaChannel(conn Conn, hello ClientHello, db *store.CatalogDB) (ServerHello, error) {
	if hello.ProtocolVersion == 0 {
		hello.ProtocolVersion = ProtocolVersion
	}
	if err := writeClientHello(conn, hello); err != nil {
		return ServerHello{}, err
	}
	server, err := readServerHello(conn)
	if err != nil {
		return ServerHello{}, err
	}
	for {
		rec, ok, err := store.ReadCatalogRecord(conn)
		if err != nil {
			return ServerHello{}, err
		}
		if !ok {
			break
		}
		if rec.StreamMetadata != nil {
			if err := db.PutStream(rec.Header.Name, *rec.StreamMetadata); err != nil {
				return ServerHello{}, err
			}
		}
		if rec.RuntimeInfo != nil {
			if err := db.PutRuntime(*rec.RuntimeInfo); err != nil {
				return ServerHello{}, err
			}
		}
	}
	return server, nil
}

// SendDataChannelGUID writes the session GUID that opens a data
// channel, per spec §6 ("client sends the session GUID").
func SendDataChannelGUID(conn Conn, guid uuid.UUID) error {
	b := guid.Bytes()
	_, err := conn.Write(b)
	return err
}

// ReceiveDataChannelGUID reads the session GUID an importer sends to
// open a data channel.
func ReceiveDataChannelGUID(conn Conn) (uuid.UUID, error) {
	var b [16]byte
	if _, err := io.ReadFull(conn, b[:]); err != nil {
		return uuid.UUID{}, err
	}
	return uuid.FromBytes(b[:])
}
