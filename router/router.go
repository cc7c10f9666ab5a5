package router

import (
	"context"
	"sort"

	"github.com/indigo-web/miniserve/http"
)

// Handler is the single call signature every route is served through. Handlers of
// other shapes are wrapped into it at registration time, see HandlerFunc, Func,
// Static and JSON.
//
// Handlers are called concurrently from different connections. Any exclusivity
// needed by the work behind them is their own business.
type Handler interface {
	Handle(ctx context.Context, request http.Request) http.Response
}

// Router maps exact paths onto handlers. It is meant to be filled once at startup
// and only read afterwards, so it carries no locks.
type Router struct {
	routes map[string]Handler
}

// New returns an empty router.
func New() *Router {
	return &Router{
		routes: make(map[string]Handler),
	}
}

// Route registers the handler under the path. The path is matched exactly and
// case-sensitively, registering the same path twice replaces the previous handler.
func (r *Router) Route(path string, handler Handler) *Router {
	if handler == nil {
		panic("router: nil handler for " + path)
	}

	r.routes[path] = handler
	return r
}

// Resolve looks the handler up by the request target. There is no query string
// stripping: a query is simply a part of the path.
func (r *Router) Resolve(path string) (Handler, bool) {
	handler, found := r.routes[path]
	return handler, found
}

// Routes returns all the registered paths in lexicographical order.
func (r *Router) Routes() []string {
	paths := make([]string, 0, len(r.routes))
	for path := range r.routes {
		paths = append(paths, path)
	}

	sort.Strings(paths)

	return paths
}
