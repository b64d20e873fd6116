package domain

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrProjectNotFound is returned when no project is registered under a
// given name.
var ErrProjectNotFound = errors.New("project is not registered")

// Project represents a registered local development project. Each project is
// reachable at "<name>.<tld>" and proxied to a local backend listening on
// Port. The proxy core only reads Name, Port and Path; the remaining fields
// belong to the registration and process lifecycle handled by the CLI.
type Project struct {
	ID            uuid.UUID      `db:"id"`              // Unique identifier for the project
	Name          string         `db:"name"`            // Project name, unique case-insensitively
	Path          string         `db:"path"`            // Absolute filesystem path of the project
	Port          int            `db:"port"`            // Assigned backend TCP port, unique across the registry
	Framework     string         `db:"framework"`       // Detected framework tag, empty when unknown
	PID           sql.NullInt64  `db:"pid"`             // Process identifier when the project is running
	Command       sql.NullString `db:"command"`         // Custom start command, when configured
	CreatedAt     time.Time      `db:"created_at"`      // When the project was registered
	LastStartedAt sql.NullTime   `db:"last_started_at"` // When the project was last started
}

// ProjectRepository defines the registry operations consumed by the proxy
// core and the CLI. Name lookups are case-insensitive.
type ProjectRepository interface {
	// GetProjects retrieves all registered projects.
	GetProjects() ([]*Project, error)

	// GetProjectByName retrieves the project registered under the given
	// name. It returns an error matching ErrProjectNotFound (via errors.Is)
	// when no such project exists.
	GetProjectByName(name string) (*Project, error)

	// CreateProject registers a new project. The port must be unassigned.
	CreateProject(project *Project) error

	// DeleteProject removes the project registered under the given name.
	DeleteProject(name string) error

	// UpdateProjectPID records (or clears, via an invalid NullInt64) the
	// running process identifier for a project.
	UpdateProjectPID(name string, pid sql.NullInt64) error

	// NextFreePort returns the lowest port at or above the registry base
	// that is not assigned to any project.
	NextFreePort() (int, error)

	// Close releases the underlying registry resources.
	Close() error
}
