package wharf

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wharflabs/wharf/certs"
	"github.com/wharflabs/wharf/domain"
)

// stubRepo is an in-memory project registry for dispatcher tests.
type stubRepo struct {
	projects map[string]*domain.Project // keyed by lowercased name
	closed   bool
}

var _ domain.ProjectRepository = (*stubRepo)(nil)

func newStubRepo(projects ...*domain.Project) *stubRepo {
	repo := &stubRepo{projects: make(map[string]*domain.Project)}
	for _, project := range projects {
		repo.projects[strings.ToLower(project.Name)] = project
	}
	return repo
}

func (s *stubRepo) GetProjects() ([]*domain.Project, error) {
	var projects []*domain.Project
	for _, project := range s.projects {
		projects = append(projects, project)
	}
	return projects, nil
}

func (s *stubRepo) GetProjectByName(name string) (*domain.Project, error) {
	project, ok := s.projects[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("looking up project %s: %w", name, domain.ErrProjectNotFound)
	}
	return project, nil
}

func (s *stubRepo) CreateProject(project *domain.Project) error {
	s.projects[strings.ToLower(project.Name)] = project
	return nil
}

func (s *stubRepo) DeleteProject(name string) error {
	delete(s.projects, strings.ToLower(name))
	return nil
}

func (s *stubRepo) UpdateProjectPID(name string, pid sql.NullInt64) error { return nil }
func (s *stubRepo) NextFreePort() (int, error)                           { return 1001, nil }
func (s *stubRepo) Close() error {
	s.closed = true
	return nil
}

// trustedProvisioner wraps a real certificate manager but reports the
// authority as trusted, which it never is for a throwaway test CA.
type trustedProvisioner struct {
	*certs.Manager
}

func (t trustedProvisioner) IsCATrusted() bool { return true }

// failingProvisioner refuses to provision one specific domain and delegates
// the rest.
type failingProvisioner struct {
	domain.Provisioner
	refuse string
}

func (f failingProvisioner) EnsureCertificate(domainName string) (string, string, error) {
	if domainName == f.refuse {
		return "", "", fmt.Errorf("certificate tool unavailable for %s", domainName)
	}
	return f.Provisioner.EnsureCertificate(domainName)
}

func testProject(t *testing.T, name string, port int) *domain.Project {
	t.Helper()

	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}
	return &domain.Project{
		ID:        id,
		Name:      name,
		Path:      "/home/dev/" + strings.ToLower(name),
		Port:      port,
		CreatedAt: time.Now(),
	}
}

func newTestProxy(t *testing.T, options ...func(*Proxy) error) *Proxy {
	t.Helper()

	base := []func(*Proxy) error{WithPorts(0, 0), WithTLD("test")}
	proxy, err := New(append(base, options...)...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return proxy
}
