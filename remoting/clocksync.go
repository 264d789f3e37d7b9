package remoting

import (
	"io"
	"time"

	"github.com/tempopipe/tempopipe/envelope"
)

// DefaultStoreExporterPort and DefaultClockExporterPort are the
// configurable defaults named in spec §6.
const (
	DefaultStoreExporterPort = 11411
	DefaultClockExporterPort = 11511
)

// ClockSyncRequest is the tiny message a client sends to begin clock
// negotiation.
type ClockSyncRequest struct {
	ProtocolVersion int16
}

// ClockSyncReply is the server's response: its current file time (in
// DateTime ticks) and machine name, used by the client to compute its
// virtual-time offset.
type ClockSyncReply struct {
	FileTime    envelope.DateTime
	MachineName string
}

func writeClockSyncRequest(w io.Writer, req ClockSyncRequest) error {
	buf := envelope.NewWriter(2)
	buf.WriteInt16(req.ProtocolVersion)
	_, err := w.Write(buf.Bytes())
	return err
}

func readClockSyncRequest(r io.Reader) (ClockSyncRequest, error) {
	var raw [2]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return ClockSyncRequest{}, err
	}
	rd := envelope.NewReader(raw[:])
	v, err := rd.ReadInt16()
	return ClockSyncRequest{ProtocolVersion: v}, err
}

func writeClockSyncReply(w io.Writer, reply ClockSyncReply) error {
	name := reply.MachineName
	body := envelope.NewWriter(8 + 4 + len(name))
	body.WriteDateTime(reply.FileTime)
	body.WriteString(&name)

	frame := envelope.NewWriter(body.Len() + 4)
	frame.WriteInt32(int32(body.Len()))
	frame.WriteBytes(body.Bytes())
	_, err := w.Write(frame.Bytes())
	return err
}

func readClockSyncReply(r io.Reader) (ClockSyncReply, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return ClockSyncReply{}, err
	}
	length := int32(lenBuf[0]) | int32(lenBuf[1])<<8 | int32(lenBuf[2])<<16 | int32(lenBuf[3])<<24
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return ClockSyncReply{}, err
	}
	rd := envelope.NewReader(body)
	var reply ClockSyncReply
	var err error
	if reply.FileTime, err = rd.ReadDateTime(); err != nil {
		return reply, err
	}
	name, err := rd.ReadString()
	if err != nil {
		return reply, err
	}
	if name != nil {
		reply.MachineName = *name
	}
	return reply, nil
}

// ServeClockSync runs the server side of the clock-sync sub-protocol
// once on conn: read the request, reply with the current file time and
// localMachineName.
func ServeClockSync(conn Conn, now envelope.DateTime, localMachineName string) error {
	if _, err := readClockSyncRequest(conn); err != nil {
		return err
	}
	return writeClockSyncReply(conn, ClockSyncReply{FileTime: now, MachineName: localMachineName})
}

// NegotiateClockOffset runs the client side: send the request, measure
// round-trip time around the reply, and compute the virtual-time offset
// this pipeline should apply (spec §4.G:
// "offset = server_time - (client_time - rtt/2)"). clientNow returns
// the client's own current file time; it is called once, immediately
// after the reply is received, so the caller controls which clock
// source (wall clock, virtual clock) is measured.
//
// Identical-machine negotiations short-circuit to a zero offset: if the
// reply's MachineName equals localMachineName, no clock skew exists to
// correct.
func NegotiateClockOffset(conn Conn, localMachineName string, clientNow func() envelope.DateTime) (envelope.TimeSpan, error) {
	start := time.Now()
	if err := writeClockSyncRequest(conn, ClockSyncRequest{ProtocolVersion: ProtocolVersion}); err != nil {
		return 0, err
	}
	reply, err := readClockSyncReply(conn)
	if err != nil {
		return 0, err
	}
	rtt := time.Since(start)
	clientTime := clientNow()

	if reply.MachineName == localMachineName {
		return 0, nil
	}

	rttTicks := envelope.TimeSpanFromDuration(rtt)
	adjustedClientTime := clientTime.Add(-rttTicks / 2)
	return reply.FileTime.Sub(adjustedClientTime), nil
}
