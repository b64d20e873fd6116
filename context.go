package wharf

import (
	"context"
	"net/http"

	"github.com/wharflabs/wharf/domain"
)

type contextKey string

const (
	// ProjectKey is the context key for the resolved project (*domain.Project)
	// attached to a request before it enters the reverse-proxy engine
	ProjectKey contextKey = "Project"
)

// ContextWithProject returns a new request with the resolved project in the
// context
func ContextWithProject(req *http.Request, project *domain.Project) *http.Request {
	ctx := context.WithValue(req.Context(), ProjectKey, project)
	return req.WithContext(ctx)
}

// ProjectFromContext returns the resolved project from the context if it
// exists
func ProjectFromContext(ctx context.Context) (*domain.Project, bool) {
	project, ok := ctx.Value(ProjectKey).(*domain.Project)
	return project, ok
}
