package remoting

import (
	"context"
	"io"
)

// Conn is a single bidirectional byte stream: one meta channel or one
// data channel. Transports that multiplex several logical channels over
// one physical connection hand back a distinct Conn per channel.
type Conn interface {
	io.ReadWriteCloser
}

// Listener accepts incoming Conns for one remoting endpoint (store
// exporter or clock exporter).
type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Addr() string
	Close() error
}

// Transport is the network-agnostic interface the handshake and record
// streaming are built against (spec §6: "separate connection for
// TCP/pipes, datagrams for UDP"). Only a QUIC-backed instance ships
// here; TCP/UDP/pipe transports are left to embedders.
type Transport interface {
	Name() string
	Dial(ctx context.Context, addr string) (Conn, error)
	Listen(addr string) (Listener, error)
}
