// Package tnet contains network helpers shared by servers and clients
package tnet

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/ridge/must/v2"
)

var lc = net.ListenConfig{
	KeepAlive: 3 * time.Minute,
}

// Listen opens a listening socket.
//
// The address may carry a network prefix: "unix:/path" listens on a UNIX
// domain socket, "tcp:host:port" on a TCP port with keep-alive. Addresses
// without a known prefix are TCP.
func Listen(address string) (net.Listener, error) {
	network := "tcp"
	if proto, rest, ok := strings.Cut(address, ":"); ok {
		switch proto {
		case "unix", "tcp":
			network, address = proto, rest
		}
	}
	return lc.Listen(context.Background(), network, address)
}

// ListenOnRandomPort listens on a free TCP port of the loopback interface
func ListenOnRandomPort() net.Listener {
	return must.OK1(Listen("localhost:"))
}

// IsClosedConnectionError reports whether err comes from using a closed
// listener or connection
func IsClosedConnectionError(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
