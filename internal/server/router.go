package server

import "net/http"

// NewRouter wires HTTP routes to the server's handlers.
func NewRouter(s *Server) (http.Handler, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/decode", s.handleDecode)
	mux.HandleFunc("/encode", s.handleEncode)
	mux.HandleFunc("/default", s.handleDefault)
	mux.HandleFunc("/catalog", s.handleCatalog)
	mux.HandleFunc("/batch", s.handleBatch)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/artifacts/", s.handleArtifactDownload)
	return withBodyLimit(mux, s.maxBody), nil
}

func withBodyLimit(next http.Handler, limit int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}
