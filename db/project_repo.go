package db

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/wharflabs/wharf/domain"
)

var _ domain.ProjectRepository = (*Repository)(nil)

// basePort is the lowest backend port handed out by NextFreePort. Ports
// below this are left to well-known services.
const basePort = 1001

// ErrProjectNotFound is the registry miss sentinel. It aliases the domain
// contract so callers can test with errors.Is against either package.
var ErrProjectNotFound = domain.ErrProjectNotFound

// GetProjects retrieves all registered projects ordered by name.
func (repo *Repository) GetProjects() ([]*domain.Project, error) {
	var projects []*domain.Project
	query := `SELECT id, name, path, port, framework, pid, command, created_at, last_started_at
	          FROM project ORDER BY name`

	err := repo.dbConn.Select(&projects, query)
	if err != nil {
		return nil, fmt.Errorf("retrieving projects: %w", err)
	}

	return projects, nil
}

// GetProjectByName retrieves the project registered under the given name.
// The lookup is case-insensitive (the name column is declared COLLATE NOCASE).
func (repo *Repository) GetProjectByName(name string) (*domain.Project, error) {
	var project domain.Project
	query := `SELECT id, name, path, port, framework, pid, command, created_at, last_started_at
	          FROM project WHERE name = ? LIMIT 1`

	err := repo.dbConn.Get(&project, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("looking up project %s: %w", name, ErrProjectNotFound)
		}
		return nil, fmt.Errorf("looking up project %s: %w", name, err)
	}

	return &project, nil
}

// CreateProject registers a new project. Name and port uniqueness are
// enforced by the schema.
func (repo *Repository) CreateProject(project *domain.Project) error {
	query := `INSERT INTO project (id, name, path, port, framework, pid, command, created_at, last_started_at)
	          VALUES (:id, :name, :path, :port, :framework, :pid, :command, :created_at, :last_started_at)`

	_, err := repo.dbConn.NamedExec(query, project)
	if err != nil {
		return fmt.Errorf("creating project %s: %w", project.Name, err)
	}

	return nil
}

// DeleteProject removes the project registered under the given name.
// It returns an error wrapping ErrProjectNotFound when no rows were removed.
func (repo *Repository) DeleteProject(name string) error {
	query := `DELETE FROM project WHERE name = ?`

	result, err := repo.dbConn.Exec(query, name)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deletion rows affected for %s: %w", name, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("deleting project %s: %w", name, ErrProjectNotFound)
	}

	return nil
}

// UpdateProjectPID records the running process identifier for a project, or
// clears it when pid is not valid. Starting a project also refreshes its
// last_started_at timestamp.
func (repo *Repository) UpdateProjectPID(name string, pid sql.NullInt64) error {
	query := `UPDATE project
	          SET pid = ?,
	              last_started_at = CASE WHEN ? THEN CURRENT_TIMESTAMP ELSE last_started_at END
	          WHERE name = ?`

	result, err := repo.dbConn.Exec(query, pid, pid.Valid, name)
	if err != nil {
		return fmt.Errorf("updating pid for %s: %w", name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking pid update rows affected for %s: %w", name, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("updating pid for %s: %w", name, ErrProjectNotFound)
	}

	return nil
}

// NextFreePort returns the lowest unassigned port at or above basePort.
func (repo *Repository) NextFreePort() (int, error) {
	var ports []int
	query := `SELECT port FROM project ORDER BY port`

	err := repo.dbConn.Select(&ports, query)
	if err != nil {
		return 0, fmt.Errorf("retrieving assigned ports: %w", err)
	}

	candidate := basePort
	for slices.Contains(ports, candidate) {
		candidate++
	}
	if candidate > 65535 {
		return 0, errors.New("no free ports left in the registry range")
	}

	return candidate, nil
}
