package gateway

import (
	"net/http"
)

// NewAdminMux serves the operational endpoints on a listener separate from
// the catch-all redirect handler, so no redirect path is shadowed.
func NewAdminMux(metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}
