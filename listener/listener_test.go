package listener

import (
	"errors"
	"net"
	"testing"
)

func TestListenLoopback(t *testing.T) {
	l, err := Listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	defer l.Close()

	if _, ok := l.Addr().(*net.TCPAddr); !ok {
		t.Fatalf("expected a TCP listener, got %T", l.Addr())
	}
}

func TestListenAddrInUse(t *testing.T) {
	first, err := Listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	defer first.Close()

	port := first.Addr().(*net.TCPAddr).Port

	_, err = Listen("127.0.0.1", port)
	if !errors.Is(err, ErrAddrInUse) {
		t.Fatalf("expected ErrAddrInUse, got %v", err)
	}
}

func TestResilientListenerPropagatesClose(t *testing.T) {
	raw, err := Listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}

	resilient := NewResilientListener(raw)
	raw.Close()

	_, err = resilient.Accept()
	if !errors.Is(err, net.ErrClosed) {
		t.Fatalf("expected net.ErrClosed after close, got %v", err)
	}
}

func TestResilientListenerAcceptsConnections(t *testing.T) {
	raw, err := Listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	resilient := NewResilientListener(raw)
	defer resilient.Close()

	done := make(chan error, 1)
	go func() {
		conn, err := resilient.Accept()
		if err == nil {
			conn.Close()
		}
		done <- err
	}()

	client, err := net.Dial("tcp", raw.Addr().String())
	if err != nil {
		t.Fatalf("dialing listener: %v", err)
	}
	client.Close()

	if err := <-done; err != nil {
		t.Fatalf("Accept() failed: %v", err)
	}
}
