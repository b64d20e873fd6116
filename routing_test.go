package wharf

import (
	"testing"
)

func TestProjectName(t *testing.T) {
	tests := []struct {
		hostname string
		tld      string
		want     string
	}{
		{"myapp.test", "test", "myapp"},
		{"MyApp.Test", "test", "myapp"},
		{"api.myapp.test", "test", "myapp"},
		{"myapp.test.", "test", "myapp"},
		{"myapp.localhost", "test", ""},
		{"test", "test", ""},
		{"example.com", "test", ""},
		{"", "test", ""},
	}
	for _, tt := range tests {
		if got := ProjectName(tt.hostname, tt.tld); got != tt.want {
			t.Errorf("ProjectName(%q, %q) = %q, want %q", tt.hostname, tt.tld, got, tt.want)
		}
	}
}

func TestHostOnly(t *testing.T) {
	tests := []struct {
		hostport string
		want     string
	}{
		{"myapp.test:8080", "myapp.test"},
		{"myapp.test", "myapp.test"},
		{"myapp.test:80", "myapp.test"},
	}
	for _, tt := range tests {
		if got := HostOnly(tt.hostport); got != tt.want {
			t.Errorf("HostOnly(%q) = %q, want %q", tt.hostport, got, tt.want)
		}
	}
}

func TestResolveBackend(t *testing.T) {
	proxy := newTestProxy(t, WithRepo(newStubRepo(testProject(t, "Triton", 3003))))

	project, ok := proxy.ResolveBackend("triton.test")
	if !ok {
		t.Fatal("expected triton.test to resolve")
	}
	if got := BackendAddr(project); got != "127.0.0.1:3003" {
		t.Errorf("got backend %q, want 127.0.0.1:3003", got)
	}

	// Host header with a port and different casing still resolves.
	if _, ok := proxy.ResolveBackend("TRITON.TEST:8080"); !ok {
		t.Error("expected TRITON.TEST:8080 to resolve")
	}

	if _, ok := proxy.ResolveBackend("ghost.test"); ok {
		t.Error("expected ghost.test to be absent")
	}
	if _, ok := proxy.ResolveBackend("triton.example.com"); ok {
		t.Error("expected a foreign TLD to be absent")
	}
}

func TestProjectDomain(t *testing.T) {
	proxy := newTestProxy(t, WithRepo(newStubRepo()))

	if got := proxy.ProjectDomain(testProject(t, "MyApp", 3000)); got != "myapp.test" {
		t.Errorf("got %q, want myapp.test", got)
	}
}
