package tws

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// tuneTCP makes the kernel drop the connection when sent data stays
// unacknowledged for config.TCPTimeout
func tuneTCP(conn net.Conn, config Config) error {
	if config.TCPTimeout == 0 {
		return nil
	}
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	raw, err := tcp.SyscallConn()
	if err != nil {
		return fmt.Errorf("failed to tune TCP socket: %w", err)
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, int(config.TCPTimeout/time.Millisecond))
	})
	if err == nil {
		err = sockErr
	}
	if err != nil {
		return fmt.Errorf("failed to tune TCP socket: %w", err)
	}
	return nil
}
