// Package server exposes the read API over committed snapshots plus the
// cron trigger that runs a cycle on demand.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"alphatrend/internal/domain"
	"alphatrend/internal/engine"
	"alphatrend/internal/observability"
	"alphatrend/internal/query"
	"alphatrend/internal/storage"
)

// CycleRunner triggers one snapshot cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*engine.RunResult, error)
}

// Options configures the server.
type Options struct {
	Query  *query.Service
	Engine CycleRunner

	// CronSecret guards the cycle trigger endpoint. Empty disables the
	// endpoint entirely.
	CronSecret string

	Logger zerolog.Logger
}

// Server is the HTTP read API.
type Server struct {
	svc    *query.Service
	engine CycleRunner
	secret string
	log    zerolog.Logger
	mux    *http.ServeMux
}

// New creates the server and registers all routes.
func New(opts Options) *Server {
	s := &Server{
		svc:    opts.Query,
		engine: opts.Engine,
		secret: opts.CronSecret,
		log:    opts.Logger.With().Str("component", "server").Logger(),
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", observability.Handler())

	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /api/snapshot", s.handleLatestSnapshot)
	s.mux.HandleFunc("GET /api/snapshots", s.handleRecentSnapshots)
	s.mux.HandleFunc("GET /api/snapshots/{id}", s.handleSnapshot)
	s.mux.HandleFunc("GET /api/tokens", s.handleTokens)
	s.mux.HandleFunc("GET /api/tokens/{id}", s.handleToken)
	s.mux.HandleFunc("GET /api/tokens/{id}/history", s.handleTokenHistory)
	s.mux.HandleFunc("GET /api/metas", s.handleMetas)
	s.mux.HandleFunc("GET /api/metas/{id}", s.handleMeta)
	s.mux.HandleFunc("GET /api/metas/{id}/flow", s.handleMetaFlow)
	s.mux.HandleFunc("GET /api/chains", s.handleChains)
	s.mux.HandleFunc("GET /api/regime", s.handleRegime)
	s.mux.HandleFunc("POST /api/cron/snapshot", s.handleCronSnapshot)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	d, err := s.svc.Dashboard(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, dashboardResponse{
		Snapshot: toSnapshotJSON(d.Snapshot),
		Tokens:   toTokensJSON(d.Tokens),
		Metas:    toMetasJSON(d.Metas),
		Chains:   toChainsJSON(d.Chains),
	})
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Latest(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSnapshotJSON(snap))
}

func (s *Server) handleRecentSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 20)
	if err != nil || limit < 1 {
		s.writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	snaps, err := s.svc.Recent(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	out := make([]*snapshotJSON, len(snaps))
	for i, snap := range snaps {
		out[i] = toSnapshotJSON(snap)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toSnapshotJSON(snap))
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	f, err := tokenFilter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := s.svc.Tokens(r.Context(), r.URL.Query().Get("snapshot_id"), f)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTokensJSON(tokens))
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	tok, err := s.svc.Token(r.Context(), r.URL.Query().Get("snapshot_id"), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTokenJSON(tok))
}

func (s *Server) handleTokenHistory(w http.ResponseWriter, r *http.Request) {
	start, end, err := rangeParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := s.svc.TokenHistory(r.Context(), r.PathValue("id"), start, end)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	out := make([]scorePointJSON, len(points))
	for i, p := range points {
		out[i] = toScorePointJSON(p)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMetas(w http.ResponseWriter, r *http.Request) {
	metas, err := s.svc.Metas(r.Context(), r.URL.Query().Get("snapshot_id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMetasJSON(metas))
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := s.svc.Meta(r.Context(), r.URL.Query().Get("snapshot_id"), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMetaJSON(meta))
}

func (s *Server) handleMetaFlow(w http.ResponseWriter, r *http.Request) {
	start, end, err := rangeParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := s.svc.MetaFlow(r.Context(), r.PathValue("id"), start, end)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	out := make([]flowPointJSON, len(points))
	for i, p := range points {
		out[i] = toFlowPointJSON(p)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	chains, err := s.svc.Chains(r.Context(), r.URL.Query().Get("snapshot_id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toChainsJSON(chains))
}

func (s *Server) handleRegime(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Latest(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, regimeResponse{
		SnapshotID:  snap.SnapshotID,
		TimestampMs: snap.TimestampMs,
		Regime:      string(snap.Regime),
	})
}

func (s *Server) handleCronSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.secret == "" || s.engine == nil {
		s.writeError(w, http.StatusNotFound, "cycle trigger disabled")
		return
	}
	auth := r.Header.Get("Authorization")
	if subtle.ConstantTimeCompare([]byte(auth), []byte("Bearer "+s.secret)) != 1 {
		s.writeError(w, http.StatusUnauthorized, "invalid cron secret")
		return
	}

	res, err := s.engine.RunCycle(r.Context())
	if err != nil {
		if errors.Is(err, engine.ErrCycleRunning) {
			s.writeError(w, http.StatusConflict, "cycle already running")
			return
		}
		s.log.Error().Err(err).Msg("triggered cycle failed")
		s.writeError(w, http.StatusInternalServerError, "cycle failed")
		return
	}

	s.writeJSON(w, http.StatusOK, cycleResponse{
		SnapshotID:      res.SnapshotID,
		Regime:          string(res.Regime),
		TokensPublished: res.TokensPublished,
		TokensRejected:  res.TokensRejected,
		MetasPublished:  res.MetasPublished,
		MetasSuppressed: res.MetasSuppressed,
		DurationMs:      res.Duration.Milliseconds(),
	})
}

// tokenFilter parses the token list query parameters.
func tokenFilter(r *http.Request) (storage.TokenFilter, error) {
	q := r.URL.Query()
	var f storage.TokenFilter

	if v := q.Get("chain"); v != "" {
		c := domain.Chain(v)
		if !c.Valid() {
			return f, errors.New("invalid chain")
		}
		f.Chain = &c
	}
	if v := q.Get("lifecycle"); v != "" {
		p := domain.LifecyclePhase(v)
		f.Lifecycle = &p
	}
	if v := q.Get("integrity"); v != "" {
		g := domain.IntegrityGrade(v)
		f.Integrity = &g
	}
	if v := q.Get("min_composite"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("invalid min_composite")
		}
		f.MinComposite = &n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("invalid limit")
		}
		f.Limit = n
	}
	return f, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func rangeParams(r *http.Request) (int64, int64, error) {
	parse := func(name string) (int64, error) {
		v := r.URL.Query().Get(name)
		if v == "" {
			return 0, nil
		}
		return strconv.ParseInt(v, 10, 64)
	}
	start, err := parse("start")
	if err != nil {
		return 0, 0, errors.New("invalid start")
	}
	end, err := parse("end")
	if err != nil {
		return 0, 0, errors.New("invalid end")
	}
	return start, end, nil
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, query.ErrHistoryDisabled):
		s.writeError(w, http.StatusNotImplemented, "history disabled")
	case errors.Is(err, storage.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, "invalid input")
	default:
		s.log.Error().Err(err).Msg("query failed")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !strings.Contains(err.Error(), "broken pipe") {
		s.log.Warn().Err(err).Msg("write response failed")
	}
}
