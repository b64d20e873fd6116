// Package listener provides the TCP listener helpers used by the wharf
// dispatchers: bind error classification for the privileged proxy ports and
// a resilient wrapper that keeps accepting after recoverable errors.
package listener

import (
	"errors"
	"fmt"
	"log"
	"net"
	"syscall"
)

var (
	// ErrPermissionDenied indicates the port needs elevated privileges.
	ErrPermissionDenied = errors.New("binding requires elevated privileges")

	// ErrAddrInUse indicates another service already holds the port.
	ErrAddrInUse = errors.New("address already in use")
)

// Listen binds a TCP listener on the given loopback address and classifies
// bind failures so callers can surface an actionable message: permission
// problems (privileged ports need root or a capability) are distinguished
// from port conflicts with another running service.
func Listen(address string, port int) (net.Listener, error) {
	addr := fmt.Sprintf("%s:%d", address, port)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		switch {
		case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
			return nil, fmt.Errorf("listening on %s: %w (run with elevated privileges or grant the binary CAP_NET_BIND_SERVICE)", addr, ErrPermissionDenied)
		case errors.Is(err, syscall.EADDRINUSE):
			return nil, fmt.Errorf("listening on %s: %w (another service is bound to this port)", addr, ErrAddrInUse)
		default:
			return nil, fmt.Errorf("listening on %s: %w", addr, err)
		}
	}
	return l, nil
}

// ResilientListener wraps net.Listener so that recoverable accept errors are
// handled gracefully instead of tearing down the dispatcher serving it.
type ResilientListener struct {
	net.Listener
}

func NewResilientListener(listenerToWrap net.Listener) *ResilientListener {
	return &ResilientListener{Listener: listenerToWrap}
}

// Accept will gracefully handle recoverable errors and continue without
// crashing the server.
func (l *ResilientListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			// If the listener was closed, this is a fatal error. Propagate it.
			if errors.Is(err, net.ErrClosed) {
				return nil, err
			}

			// For any other error, log it and continue to the next connection attempt.
			log.Printf("Recoverable listener error, connection rejected: %v", err)
			continue
		}
		return conn, nil
	}
}
