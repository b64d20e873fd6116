package wharf

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/wharflabs/wharf/domain"
)

// HostOnly strips any trailing ":port" from a Host header value. Browsers
// include the listening port when it differs from the scheme default.
func HostOnly(hostport string) string {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport
	}
	return host
}

// ProjectName extracts the candidate project name from a hostname: the
// hostname must end in ".<tld>", and the project name is the label directly
// before the suffix, so "api.myapp.test" resolves to "myapp". An empty
// string means the hostname is not routable.
func ProjectName(hostname, tld string) string {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	suffix := "." + strings.ToLower(tld)
	if !strings.HasSuffix(hostname, suffix) {
		return ""
	}
	labels := strings.Split(strings.TrimSuffix(hostname, suffix), ".")
	return labels[len(labels)-1]
}

// ResolveBackend maps a request hostname to a registered project. The
// hostname may carry a port. Resolution is absent when the hostname does not
// end in the configured TLD or no project is registered under the extracted
// name; name comparison is case-insensitive.
func (proxy *Proxy) ResolveBackend(hostname string) (*domain.Project, bool) {
	name := ProjectName(HostOnly(hostname), proxy.Config.TLD)
	if name == "" {
		return nil, false
	}

	project, err := proxy.Repo.GetProjectByName(name)
	if err != nil {
		if !errors.Is(err, domain.ErrProjectNotFound) {
			proxy.WriteLog("ERROR", fmt.Sprintf("registry lookup for %s failed: %v", name, err))
		}
		return nil, false
	}
	return project, true
}

// BackendAddr returns the loopback dial target for a project.
func BackendAddr(project *domain.Project) string {
	return fmt.Sprintf("127.0.0.1:%d", project.Port)
}

// ProjectDomain returns the routable domain for a project under the
// configured TLD.
func (proxy *Proxy) ProjectDomain(project *domain.Project) string {
	return strings.ToLower(project.Name) + "." + proxy.Config.TLD
}
