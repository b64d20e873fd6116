package wharf

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/yosssi/gohtml"

	"github.com/wharflabs/wharf/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// renderNotFound renders the "project not found" diagnostic page for a
// hostname that did not resolve against the registry.
func (proxy *Proxy) renderNotFound(w http.ResponseWriter, r *http.Request) {
	host := HostOnly(r.Host)
	data := struct {
		Hostname    string
		ProjectName string
		TLD         string
	}{
		Hostname:    host,
		ProjectName: ProjectName(host, proxy.Config.TLD),
		TLD:         proxy.Config.TLD,
	}
	proxy.renderPage(w, http.StatusNotFound, "notfound.html.tmpl", data)
}

// renderUnreachable renders the "project not responding" diagnostic page.
// It carries everything a developer needs to unblock themselves without
// consulting logs: project name, expected port, filesystem path and the raw
// connection error.
func (proxy *Proxy) renderUnreachable(w http.ResponseWriter, r *http.Request, project *domain.Project, connErr error) {
	data := struct {
		Hostname string
		Project  *domain.Project
		Error    string
	}{
		Hostname: HostOnly(r.Host),
		Project:  project,
		Error:    cleanDialError(connErr),
	}
	proxy.renderPage(w, http.StatusBadGateway, "unreachable.html.tmpl", data)
}

func (proxy *Proxy) renderPage(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		proxy.WriteLog("ERROR", fmt.Sprintf("rendering %s: %v", name, err))
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(gohtml.FormatBytes(buf.Bytes()))
}

// cleanDialError strips dialer noise from a backend connection error so the
// page shows the plain refusal text. A dial failure reads
// "dial tcp 127.0.0.1:3003: connect: connection refused"; everything through
// the "connect" marker is dropped.
func cleanDialError(err error) string {
	msg := err.Error()
	if _, after, found := strings.Cut(msg, "connect: "); found {
		return after
	}
	return strings.TrimPrefix(msg, "connect ")
}
