package wharf

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/wharflabs/wharf/listener"
)

// ErrAlreadyRunning is returned by Start when the proxy was started without
// an intervening Stop.
var ErrAlreadyRunning = errors.New("proxy server is already running")

// StartOptions control per-run dispatcher behavior.
type StartOptions struct {
	// HTTPSRedirect makes the plaintext dispatcher answer every non-asset
	// request with a 301 to the TLS scheme, provided the TLS dispatcher is
	// active.
	HTTPSRedirect bool
}

// StartResult reports the listener outcome of a Start call. A TLS dispatcher
// failure after a successful plaintext bind is partial success: HTTPPort is
// set, SSLEnabled is false and Warning explains why.
type StartResult struct {
	HTTPPort   int    // Bound plaintext port
	HTTPSPort  int    // Bound TLS port, 0 when the TLS dispatcher is not running
	SSLEnabled bool   // Whether the TLS dispatcher is accepting handshakes
	Warning    string // Human-readable reason when TLS was skipped or failed
}

// Start binds the plaintext dispatcher and, when the certificate authority
// is trusted and at least one project is registered, the TLS dispatcher.
// Starting twice without stopping is rejected.
func (proxy *Proxy) Start(options StartOptions) (StartResult, error) {
	proxy.mu.Lock()
	defer proxy.mu.Unlock()

	if proxy.running {
		return StartResult{}, ErrAlreadyRunning
	}
	if proxy.Repo == nil {
		return StartResult{}, errors.New("proxy has no project registry configured")
	}

	httpListener, err := listener.Listen("127.0.0.1", proxy.Config.HTTPPort)
	if err != nil {
		return StartResult{}, fmt.Errorf("starting plaintext dispatcher: %w", err)
	}

	proxy.redirectHTTPS.Store(options.HTTPSRedirect)
	proxy.httpServer = &http.Server{Handler: http.HandlerFunc(proxy.dispatch)}
	go proxy.httpServer.Serve(listener.NewResilientListener(httpListener))

	result := StartResult{
		HTTPPort: httpListener.Addr().(*net.TCPAddr).Port,
	}
	proxy.WriteLog("INFO", fmt.Sprintf("plaintext dispatcher listening on 127.0.0.1:%d", result.HTTPPort))

	result.HTTPSPort, result.SSLEnabled, result.Warning = proxy.startTLS()
	if result.Warning != "" {
		proxy.WriteLog("WARN", result.Warning)
	}

	proxy.running = true
	return result, nil
}

// startTLS attempts to bring up the TLS dispatcher. It returns the bound
// port, whether TLS is active, and a warning describing why it is not.
// Callers hold proxy.mu.
func (proxy *Proxy) startTLS() (port int, active bool, warning string) {
	if proxy.Provisioner == nil {
		return 0, false, "no certificate provisioner configured, serving HTTP only"
	}
	if !proxy.Provisioner.IsCATrusted() {
		return 0, false, "certificate authority is not trusted yet, serving HTTP only"
	}

	projects, err := proxy.Repo.GetProjects()
	if err != nil {
		return 0, false, fmt.Sprintf("listing projects for certificate fill failed, serving HTTP only: %v", err)
	}
	if len(projects) == 0 {
		return 0, false, "no projects registered, serving HTTP only"
	}

	// Eager fill before the listener accepts so the common case handshake
	// never provisions cold.
	proxy.warmCertificates(projects)

	tlsListener, err := listener.Listen("127.0.0.1", proxy.Config.HTTPSPort)
	if err != nil {
		return 0, false, fmt.Sprintf("starting TLS dispatcher failed, serving HTTP only: %v", err)
	}

	tlsConfig := &tls.Config{
		GetCertificate: proxy.getCertificate,
		MinVersion:     tls.VersionTLS12,
		NextProtos:     []string{"http/1.1"},
	}

	proxy.tlsServer = &http.Server{Handler: http.HandlerFunc(proxy.dispatch)}
	go proxy.tlsServer.Serve(tls.NewListener(listener.NewResilientListener(tlsListener), tlsConfig))

	boundPort := tlsListener.Addr().(*net.TCPAddr).Port
	proxy.sslActive.Store(true)
	proxy.WriteLog("INFO", fmt.Sprintf("TLS dispatcher listening on 127.0.0.1:%d", boundPort))
	return boundPort, true, ""
}

// Stop tears down both dispatchers. It is idempotent and safe to call when
// the proxy is not running.
func (proxy *Proxy) Stop() error {
	proxy.mu.Lock()
	defer proxy.mu.Unlock()

	if !proxy.running {
		return nil
	}

	var errs []error
	if proxy.httpServer != nil {
		if err := proxy.httpServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing plaintext dispatcher: %w", err))
		}
		proxy.httpServer = nil
	}
	if proxy.tlsServer != nil {
		if err := proxy.tlsServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing TLS dispatcher: %w", err))
		}
		proxy.tlsServer = nil
	}

	proxy.sslActive.Store(false)
	proxy.redirectHTTPS.Store(false)
	proxy.running = false
	proxy.WriteLog("INFO", "proxy server stopped")
	return errors.Join(errs...)
}

// IsRunning reports whether Start has succeeded without a following Stop.
func (proxy *Proxy) IsRunning() bool {
	proxy.mu.Lock()
	defer proxy.mu.Unlock()
	return proxy.running
}
