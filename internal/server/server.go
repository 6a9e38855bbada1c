// Package server exposes graph validation and evaluation over HTTP.
//
// The service is deliberately small: graphs arrive as snapshot JSON
// (the pkg/io format), are validated or folded in-process, and the
// result goes back as JSON. There is no graph storage and no
// cross-request state beyond the configured interpreter.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/veldran/nexpr/pkg/expr"
	"github.com/veldran/nexpr/pkg/fold"
	nexprio "github.com/veldran/nexpr/pkg/io"
)

// Server handles graph validation and evaluation requests.
type Server struct {
	logger *charmlog.Logger
	interp fold.Interpreter
	router chi.Router
}

// New creates a Server that evaluates graphs with the given interpreter.
func New(logger *charmlog.Logger, interp fold.Interpreter) *Server {
	s := &Server{logger: logger, interp: interp}

	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/validate", s.handleValidate)
	r.Post("/v1/eval", s.handleEval)
	s.router = r

	return s
}

// Handler returns the server's HTTP handler for mounting or testing.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server on addr until ctx is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestID tags each request with a UUID for log correlation.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		s.logger.Debug("request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleValidate decodes and commits the posted snapshot, reporting
// integrity errors without evaluating anything.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	_, err := readGraph(r)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleEval folds the posted snapshot and returns the root value with
// its type, both ctyjson-encoded.
func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	g, err := readGraph(r)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}

	v, err := fold.Fold(r.Context(), s.interp, g)
	if err != nil {
		s.logger.Warn("eval failed", "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	ty, err := ctyjson.MarshalType(v.Type())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	val, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{
		"value": val,
		"type":  ty,
	})
}

func readGraph(r *http.Request) (expr.NExpr, error) {
	defer r.Body.Close()
	return nexprio.ReadExpr(http.MaxBytesReader(nil, r.Body, 4<<20))
}

// statusFor maps decode and integrity failures to response codes: graphs
// that fail validation are unprocessable, everything else about the body
// is a plain bad request.
func statusFor(err error) int {
	switch {
	case errors.Is(err, expr.ErrDanglingReference),
		errors.Is(err, expr.ErrDanglingAlias),
		errors.Is(err, expr.ErrUnknownRoot),
		errors.Is(err, expr.ErrGraphHasCycle):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
