package wharf

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"net/http/httputil"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

//go:embed assets
var assetFS embed.FS

// AssetPrefix is the well-known path under which built-in static assets are
// served, regardless of hostname routing.
const AssetPrefix = "/__wharf/"

// dispatch handles every decrypted request on both dispatchers: built-in
// assets bypass routing, then the optional HTTPS redirect applies, then the
// hostname is resolved against the registry and the request is proxied,
// upgraded, or answered with a diagnostic page.
func (proxy *Proxy) dispatch(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, AssetPrefix) {
		proxy.serveAsset(w, r)
		return
	}

	if proxy.redirectHTTPS.Load() && proxy.sslActive.Load() && r.TLS == nil {
		http.Redirect(w, r, "https://"+HostOnly(r.Host)+r.URL.RequestURI(), http.StatusMovedPermanently)
		return
	}

	project, ok := proxy.ResolveBackend(r.Host)
	if !ok {
		if isUpgradeRequest(r) {
			// No diagnostic page is possible over a half-upgraded
			// connection; drop the socket.
			abortUpgrade(w)
			return
		}
		proxy.renderNotFound(w, r)
		return
	}

	if isUpgradeRequest(r) {
		proxy.forwardUpgrade(w, r, project)
		return
	}

	proxy.engine.ServeHTTP(w, ContextWithProject(r, project))
}

// serveAsset serves a built-in asset by name. Unknown names get a plain-text
// 404 rather than the styled diagnostic page.
func (proxy *Proxy) serveAsset(w http.ResponseWriter, r *http.Request) {
	name := path.Clean(strings.TrimPrefix(r.URL.Path, AssetPrefix))
	data, err := assetFS.ReadFile("assets/" + name)
	if err != nil {
		http.Error(w, "asset not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Write(data)
}

// newEngine builds the shared reverse-proxy engine. The backend target is
// carried per-request in the context, so a single engine instance serves
// every project.
func (proxy *Proxy) newEngine() *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Director:     proxy.director,
		ErrorHandler: proxy.backendError,
		// Dev servers stream build output and server-sent events; flush
		// straight through instead of buffering.
		FlushInterval: -1,
	}
}

func (proxy *Proxy) director(req *http.Request) {
	project, ok := ProjectFromContext(req.Context())
	if !ok {
		// Unreachable through dispatch; leave the request alone so the
		// error handler can report the dial failure.
		return
	}
	req.URL.Scheme = "http"
	req.URL.Host = BackendAddr(project)
	req.Header.Set("X-Forwarded-Host", req.Host)
	if req.TLS != nil {
		req.Header.Set("X-Forwarded-Proto", "https")
	} else {
		req.Header.Set("X-Forwarded-Proto", "http")
	}
}

// backendError turns a failed backend round-trip into the styled "project
// not responding" page. Client disconnects are not an error worth rendering.
func (proxy *Proxy) backendError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	project, ok := ProjectFromContext(r.Context())
	if !ok {
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	proxy.renderUnreachable(w, r, project, err)
}
