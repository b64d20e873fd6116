package wharf

import (
	"crypto/tls"
	"crypto/x509"
	"sync"
	"testing"

	"github.com/wharflabs/wharf/certs"
	"github.com/wharflabs/wharf/domain"
)

func TestCertCacheLastWriteWins(t *testing.T) {
	cache := newCertCache()

	first := &tls.Certificate{}
	second := &tls.Certificate{}

	cache.insert("myapp.test", first)
	if got, ok := cache.lookup("myapp.test"); !ok || got != first {
		t.Fatal("lookup after insert did not return the inserted identity")
	}

	cache.insert("myapp.test", second)
	if got, _ := cache.lookup("myapp.test"); got != second {
		t.Fatal("second insert did not replace the binding")
	}

	// The fallback stays pinned to the first identity ever inserted.
	if cache.fallback() != first {
		t.Fatal("fallback should be the first inserted identity")
	}
}

func TestCertCacheMissingDomain(t *testing.T) {
	cache := newCertCache()

	if _, ok := cache.lookup("unknown.test"); ok {
		t.Fatal("lookup on empty cache should miss")
	}
	if cache.fallback() != nil {
		t.Fatal("fallback on empty cache should be nil")
	}
}

func TestCertCacheConcurrentInserts(t *testing.T) {
	cache := newCertCache()
	identity := &tls.Certificate{}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.insert("racy.test", identity)
			if got, ok := cache.lookup("racy.test"); !ok || got == nil {
				t.Error("concurrent lookup observed a missing identity")
			}
		}()
	}
	wg.Wait()
}

func TestGetCertificateCacheAndFallback(t *testing.T) {
	manager, err := certs.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("certs.NewManager() failed: %v", err)
	}

	proxy := newTestProxy(t,
		WithRepo(newStubRepo()),
		WithProvisioner(failingProvisioner{Provisioner: trustedProvisioner{manager}, refuse: "ghost.test"}),
	)

	// Cold miss provisions and caches.
	cert, err := proxy.getCertificate(&tls.ClientHelloInfo{ServerName: "myapp.test"})
	if err != nil {
		t.Fatalf("getCertificate() failed: %v", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("parsing served certificate: %v", err)
	}
	if err := leaf.VerifyHostname("myapp.test"); err != nil {
		t.Errorf("served certificate does not cover myapp.test: %v", err)
	}

	if cached, ok := proxy.certs.lookup("myapp.test"); !ok || cached != cert {
		t.Error("identity was not cached after the handshake")
	}

	// Provisioning failure falls back to the first cached identity instead
	// of failing the handshake.
	fallback, err := proxy.getCertificate(&tls.ClientHelloInfo{ServerName: "ghost.test"})
	if err != nil {
		t.Fatalf("expected fallback identity, got error: %v", err)
	}
	if fallback != cert {
		t.Error("fallback should present the first cached identity")
	}

	// The failed domain is not cached; a later handshake retries.
	if _, ok := proxy.certs.lookup("ghost.test"); ok {
		t.Error("failed provisioning must not poison the cache")
	}
}

func TestGetCertificateEmptyCacheError(t *testing.T) {
	manager, err := certs.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("certs.NewManager() failed: %v", err)
	}

	proxy := newTestProxy(t,
		WithRepo(newStubRepo()),
		WithProvisioner(failingProvisioner{Provisioner: trustedProvisioner{manager}, refuse: "ghost.test"}),
	)

	if _, err := proxy.getCertificate(&tls.ClientHelloInfo{ServerName: "ghost.test"}); err == nil {
		t.Fatal("expected an error when no fallback identity exists")
	}
}

func TestWarmCertificates(t *testing.T) {
	manager, err := certs.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("certs.NewManager() failed: %v", err)
	}

	projects := []*domain.Project{
		testProject(t, "alpha", 3001),
		testProject(t, "beta", 3002),
	}

	proxy := newTestProxy(t,
		WithRepo(newStubRepo(projects...)),
		WithProvisioner(trustedProvisioner{manager}),
	)

	proxy.warmCertificates(projects)

	for _, project := range projects {
		if _, ok := proxy.certs.lookup(proxy.ProjectDomain(project)); !ok {
			t.Errorf("expected %s to be cached after eager fill", proxy.ProjectDomain(project))
		}
	}
}
