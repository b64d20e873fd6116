// Package wharf provides a local development proxy that maps friendly
// hostnames such as "myapp.test" to development servers running on arbitrary
// local ports. It is designed to be decoupled from the CLI and daemon
// implementations and provides the pieces those build on.
//
// The core functionality includes:
//   - Hostname routing from the Host header or TLS server name to a
//     registered project backend on 127.0.0.1
//   - On-demand per-domain certificate issuance and caching driven by SNI
//   - WebSocket upgrade forwarding for hot-module-reload channels
//   - Styled diagnostic pages for unresolved hostnames and unreachable
//     backends
package wharf

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wharflabs/wharf/domain"
)

// Proxy is the main struct that orchestrates the dispatchers: it owns the
// certificate cache, the shared reverse-proxy engine and the two listeners,
// and consumes the project registry and certificate provisioner.
type Proxy struct {
	ConfigDir   string                   // The configuration directory
	Config      *Config                  // The wharf proxy configuration
	Repo        domain.ProjectRepository // Project registry
	Provisioner domain.Provisioner       // Certificate provisioner
	OnLog       func(log Log) error      // Function to be ran on each log - used by the daemon to surface events

	engine *httputil.ReverseProxy // Shared reverse-proxy engine, created once at startup
	certs  *certCache             // Domain to TLS identity cache

	mu         sync.Mutex
	httpServer *http.Server
	tlsServer  *http.Server
	running    bool

	// Read on every request while Start/Stop mutate them, hence atomics.
	sslActive     atomic.Bool
	redirectHTTPS atomic.Bool
}

// New creates a new Proxy instance with default configuration and applies
// any provided options.
func New(options ...func(*Proxy) error) (*Proxy, error) {
	proxy := &Proxy{
		Config: defaultConfig(),
		certs:  newCertCache(),
	}
	proxy.engine = proxy.newEngine()
	err := proxy.WithOptions(options...)
	if err != nil {
		return nil, err
	}
	return proxy, nil
}

// WithOptions applies a series of configuration functions to the proxy
// instance.
func (proxy *Proxy) WithOptions(options ...func(*Proxy) error) error {
	for _, option := range options {
		err := option(proxy)
		if err != nil {
			return fmt.Errorf("applying option on wharf : %w", err)
		}
	}
	return nil
}

// Log represents a proxy event surfaced to the daemon: listener lifecycle,
// routing failures, certificate provisioning outcomes.
type Log struct {
	ID        uuid.UUID      // Unique identifier for the log entry
	Timestamp time.Time      // When the log entry was created
	Level     string         // Log level (DEBUG, INFO, WARN, ERROR, FATAL)
	Message   string         // Log message content
	Context   map[string]any // Additional context data
}

// WriteLog records a proxy event, forwarding it to the OnLog handler when
// one is configured.
func (proxy *Proxy) WriteLog(level string, message string, options ...func(log *Log) error) error {
	switch level {
	case "DEBUG":
	case "INFO":
	case "WARN":
	case "ERROR":
	case "FATAL":
	default:
		return fmt.Errorf("level should be either: debug, info, warn, error, fatal")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating new uuid : %w", err)
	}
	entry := Log{
		ID:        id,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
	for _, option := range options {
		err := option(&entry)
		if err != nil {
			return fmt.Errorf("applying log option : %w", err)
		}
	}
	log.Printf("[%s] %s", entry.Level, entry.Message)
	if proxy.OnLog != nil {
		return proxy.OnLog(entry)
	}
	return nil
}

// LogWithContext attaches context data to a log entry.
func LogWithContext(context map[string]any) func(log *Log) error {
	return func(log *Log) error {
		log.Context = context
		return nil
	}
}
