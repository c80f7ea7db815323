// Package transport provides Factory implementations for
// connection.Manager: a plain TCP dialer and a serial-port opener.
package transport

import (
	"context"
	"net"

	"github.com/halvorlund/hanreader/pkg/connection"
)

// TCP returns a connection.Factory that dials addr (host:port) for
// every connect attempt.
func TCP(addr string) connection.Factory {
	var dialer net.Dialer
	return func(ctx context.Context) (connection.Conn, error) {
		return dialer.DialContext(ctx, "tcp", addr)
	}
}
