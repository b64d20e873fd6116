package wharf

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/wharflabs/wharf/domain"
)

// isUpgradeRequest reports whether the request asks to switch protocols on
// the same TCP connection. Only WebSocket upgrades are forwarded; they carry
// the hot-module-reload channels of modern dev servers.
func isUpgradeRequest(r *http.Request) bool {
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return false
	}
	for _, token := range strings.Split(r.Header.Get("Connection"), ",") {
		if strings.EqualFold(strings.TrimSpace(token), "upgrade") {
			return true
		}
	}
	return false
}

// abortUpgrade drops the client socket without writing an HTTP response.
func abortUpgrade(w http.ResponseWriter) {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		return
	}
	conn, _, err := hijacker.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}

// forwardUpgrade takes over the client socket and splices it to a fresh
// connection to the project backend, replaying the original upgrade request
// first. None of the buffering of the plain HTTP path applies here; bytes
// flow raw in both directions until either side closes.
func (proxy *Proxy) forwardUpgrade(w http.ResponseWriter, r *http.Request, project *domain.Project) {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "upgrade not supported on this connection", http.StatusBadGateway)
		return
	}

	clientConn, clientRW, err := hijacker.Hijack()
	if err != nil {
		proxy.WriteLog("ERROR", fmt.Sprintf("hijacking upgrade connection for %s: %v", r.Host, err))
		return
	}
	defer clientConn.Close()
	clientConn.SetDeadline(time.Time{})

	backend, err := net.DialTimeout("tcp", BackendAddr(project), 10*time.Second)
	if err != nil {
		proxy.WriteLog("WARN", fmt.Sprintf("upgrade backend dial for %s failed: %v", proxy.ProjectDomain(project), err))
		return
	}
	defer backend.Close()

	if err := writeUpgradeRequest(backend, r); err != nil {
		proxy.WriteLog("WARN", fmt.Sprintf("replaying upgrade request to %s: %v", BackendAddr(project), err))
		return
	}

	errc := make(chan error, 2)
	go func() {
		// clientRW.Reader first: it may hold bytes the server already
		// buffered past the request head.
		_, err := io.Copy(backend, clientRW.Reader)
		errc <- err
	}()
	go func() {
		_, err := io.Copy(clientConn, backend)
		errc <- err
	}()
	<-errc
}

// writeUpgradeRequest reproduces the client's upgrade request on the backend
// connection, keeping the handshake headers intact.
func writeUpgradeRequest(w io.Writer, r *http.Request) error {
	if _, err := fmt.Fprintf(w, "%s %s %s\r\n", r.Method, r.URL.RequestURI(), r.Proto); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Host: %s\r\n", r.Host); err != nil {
		return err
	}
	if err := r.Header.Write(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
