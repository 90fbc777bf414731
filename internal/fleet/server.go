package fleet

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/banshee-data/vitals.report/internal/httputil"
	"github.com/banshee-data/vitals.report/internal/monitoring"
)

// maxTriggerBody bounds a /trigger request. A cv_image may carry an encoded
// frame, so this is generous.
const maxTriggerBody = 8 << 20

// Server exposes the fleet store over HTTP.
type Server struct {
	Store *Store
}

// NewServer returns a Server over store.
func NewServer(store *Store) *Server {
	return &Server{Store: store}
}

// ServeMux returns the public routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	s.AttachRoutes(mux)
	return mux
}

// AttachRoutes registers the public routes on mux.
func (s *Server) AttachRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/trigger", s.handleTrigger)
	mux.HandleFunc("GET /data/{plate}", s.handleLatest)
	mux.HandleFunc("GET /history/{plate}", s.handleHistory)
	mux.HandleFunc("GET /chart/{plate}", s.handleChart)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var u Update
	body := io.LimitReader(r.Body, maxTriggerBody)
	if err := json.NewDecoder(body).Decode(&u); err != nil {
		httputil.BadRequest(w, "Invalid JSON payload")
		return
	}

	entry, err := s.Store.Apply(r.Context(), u)
	if errors.Is(err, ErrNoPlate) {
		httputil.BadRequest(w, "No plate provided")
		return
	}
	if err != nil {
		monitoring.Logf("trigger %s: %v", u.Plate, err)
		httputil.InternalServerError(w, "Failed to record update")
		return
	}

	monitoring.Logf("trigger %s: history %s", u.Plate, entry.ID)
	httputil.WriteStatus(w, http.StatusOK, "success", "Partial update received")
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := s.Store.Latest(r.Context(), r.PathValue("plate"))
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if !ok {
		httputil.NotFound(w, "No data available")
		return
	}
	httputil.WriteJSONOK(w, snap)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, ok, err := s.Store.History(r.Context(), r.PathValue("plate"))
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if !ok {
		httputil.NotFound(w, "No history available")
		return
	}
	httputil.WriteJSONOK(w, entries)
}
