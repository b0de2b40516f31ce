package gateway

import (
	"net/http"
)

// HTTPHandler is implemented by surfaces that mount routes on the shared
// monitoring mux. The prefix is the URL path prefix for the handler's routes
// and always ends in "/".
type HTTPHandler interface {
	RegisterHTTPHandlers(prefix string, mux *http.ServeMux)
}
