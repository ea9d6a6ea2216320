package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Wollering/CTF-Assessment-Engine/internal/assessment"
	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

// Router builds the HTTP front door.
func (a *App) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/assessments", a.handleAssessment).Methods(http.MethodPost)
	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := ctxlog.WithLogger(r.Context(), a.logger)

	var req assessment.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fault.BadInput, "request body is not valid JSON")
		return
	}
	if req.TenantID == "" {
		req.TenantID = a.cfg.DefaultTenant
	}

	result, err := a.runner.Run(ctx, req)
	if err != nil {
		kind := fault.KindOf(err)
		writeError(w, statusForKind(kind), kind, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// statusForKind maps the run-level failure taxonomy onto HTTP status
// codes. Upstream trust and storage problems are gateway errors, not
// client mistakes.
func statusForKind(kind fault.Kind) int {
	switch kind {
	case fault.BadInput:
		return http.StatusBadRequest
	case fault.NotFound:
		return http.StatusNotFound
	case fault.Inactive:
		return http.StatusConflict
	case fault.InvalidDefinition:
		return http.StatusUnprocessableEntity
	case fault.LoadError, fault.AssumeRole:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, kind fault.Kind, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: string(kind)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Serve runs the HTTP front door until the listener fails or the context
// is cancelled.
func (a *App) Serve(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.logger.Info("Assessment server starting.", "address", addr)
	return server.ListenAndServe()
}
