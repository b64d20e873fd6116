package wharf

import (
	"crypto/tls"
	"fmt"
	"sync"

	"github.com/wharflabs/wharf/domain"
)

// certCache maps fully-qualified domains to ready-to-use TLS identities.
// Inserts are last-write-wins and identities are always constructed fully
// before being published, so concurrent handshakes never observe a
// half-built certificate. The first identity ever inserted is remembered as
// the fallback for handshakes whose own provisioning fails.
type certCache struct {
	mu    sync.RWMutex
	certs map[string]*tls.Certificate
	first *tls.Certificate
}

func newCertCache() *certCache {
	return &certCache{
		certs: make(map[string]*tls.Certificate),
	}
}

func (c *certCache) lookup(domain string) (*tls.Certificate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cert, ok := c.certs[domain]
	return cert, ok
}

func (c *certCache) insert(domain string, cert *tls.Certificate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.first == nil {
		c.first = cert
	}
	c.certs[domain] = cert
}

// fallback returns the first identity inserted into the cache, or nil when
// the cache has never been filled.
func (c *certCache) fallback() *tls.Certificate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.first
}

// ensureIdentity provisions the certificate files for a domain and loads
// them into a TLS identity. Concurrent calls for the same unseen domain may
// each invoke the provisioner; that is harmless because provisioning is
// idempotent on disk and cache inserts are last-write-wins.
func (proxy *Proxy) ensureIdentity(domain string) (*tls.Certificate, error) {
	certPath, keyPath, err := proxy.Provisioner.EnsureCertificate(domain)
	if err != nil {
		return nil, fmt.Errorf("provisioning certificate for %s : %w", domain, err)
	}

	identity, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("loading certificate pair for %s : %w", domain, err)
	}

	proxy.certs.insert(domain, &identity)
	return &identity, nil
}

// getCertificate is the SNI callback invoked once per incoming TLS
// handshake. Cache hits use the bound identity; misses provision
// synchronously, stalling only this handshake. When provisioning fails the
// handshake falls back to the first cached identity instead of failing
// outright: the listener stays usable for already-known domains at the cost
// of presenting a mismatched certificate for the new one.
//
// TODO: the fallback hands an unresolvable domain some other project's
// certificate; a generated self-signed fallback identity would be a more
// honest answer.
func (proxy *Proxy) getCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	servername := hello.ServerName

	if cert, ok := proxy.certs.lookup(servername); ok {
		return cert, nil
	}

	if servername != "" {
		cert, err := proxy.ensureIdentity(servername)
		if err == nil {
			return cert, nil
		}
		proxy.WriteLog("WARN", fmt.Sprintf("certificate for %s unavailable, presenting fallback: %v", servername, err))
	}

	if cert := proxy.certs.fallback(); cert != nil {
		return cert, nil
	}
	return nil, fmt.Errorf("no certificate available for server name %q", servername)
}

// warmCertificates eagerly fills the cache for every registered project so
// the common case handshake never waits on provisioning. Individual failures
// are logged and skipped.
func (proxy *Proxy) warmCertificates(projects []*domain.Project) {
	for _, project := range projects {
		domainName := proxy.ProjectDomain(project)
		if _, ok := proxy.certs.lookup(domainName); ok {
			continue
		}
		if _, err := proxy.ensureIdentity(domainName); err != nil {
			proxy.WriteLog("WARN", fmt.Sprintf("eager certificate fill for %s failed: %v", domainName, err))
		}
	}
}
