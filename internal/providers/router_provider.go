package providers

import (
	"net/http"
	"voiceloop/internal/structures"
)

type RouterProviderInterface interface {
	Get(url string, handler http.Handler)
	GetRoutes() []structures.Route
}

// RouterProvider collects the API routes under one prefix. The API only
// exposes stored profiles, records and insights; anything but GET or HEAD is
// refused before it reaches a controller.
type RouterProvider struct {
	prefix string
	routes []structures.Route
}

func (rp *RouterProvider) Get(url string, handler http.Handler) {
	rp.routes = append(rp.routes, structures.Route{
		Url:     rp.prefix + url,
		Handler: readOnlyHandler(handler),
	})
}

func (rp *RouterProvider) GetRoutes() []structures.Route {
	return rp.routes
}

func NewRouterProvider(prefix string) RouterProviderInterface {
	return &RouterProvider{prefix: prefix}
}

func readOnlyHandler(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, r.Method+" not allowed on the read-only API", http.StatusMethodNotAllowed)
	})
}
