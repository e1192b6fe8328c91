package harness

import (
	"context"
	"net"
)

// DefaultAddress is the bind address used when none is configured.
const DefaultAddress = "127.0.0.1:0"

// ListenTCP binds a TCP listener on addr, or DefaultAddress when addr is empty.
func ListenTCP(ctx context.Context, addr string) (net.Listener, error) {
	if addr == "" {
		addr = DefaultAddress
	}
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}
