package remoting

import (
	"io"

	"github.com/tempopipe/tempopipe/envelope"
	"github.com/tempopipe/tempopipe/store"
)

// StreamRecords writes every record from recs onto a data channel,
// identical to the persisted-store layout (spec §6). It returns on the
// first write error or when recs is exhausted.
func StreamRecords(conn Conn, recs <-chan envelope.Message[[]byte]) error {
	for m := range recs {
		if err := store.WriteRecord(conn, m.Envelope, m.Payload); err != nil {
			return err
		}
		recordsTransferred.WithLabelValues("sent").Inc()
	}
	return nil
}

// ReceiveRecords reads records off a data channel and appends each one
// to dst, returning when the connection is closed (io.EOF) or a read
// error occurs. Used by an importer to mirror a remote store locally.
func ReceiveRecords(conn Conn, dst *store.Store) error {
	for {
		env, payload, err := store.ReadRecord(conn)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := dst.Append(env, payload); err != nil {
			return err
		}
		recordsTransferred.WithLabelValues("received").Inc()
	}
}
