// Package api serves flow states over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/speedtrackorg/libspeedtrack-go/flow"
	"github.com/speedtrackorg/libspeedtrack-go/ledger"
)

// ShutdownTimeout bounds the graceful shutdown in Run.
const ShutdownTimeout = 5 * time.Second

// ChainChecker reports whether the provider is on the expected chain.
type ChainChecker interface {
	CheckChain(ctx context.Context) (bool, error)
}

// Server is the HTTP front of a Reducer.
type Server struct {
	httpServer *http.Server
	reducer    *flow.Reducer
	ledger     ledger.Ledger
	chain      ChainChecker
	logger     *zap.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a server bound to addr. A nil chain checker treats every
// request as being on the correct network.
func NewServer(addr string, reducer *flow.Reducer, l ledger.Ledger, chain ChainChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		reducer: reducer,
		ledger:  l,
		chain:   chain,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(api chi.Router) {
		api.Get("/flow/{address}", s.handleFlow)
		api.Post("/flow/{address}/refresh", s.handleRefresh)
		api.Get("/levels/{level}", s.handleLevel)
	})

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router, for mounting or testing.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Addr returns the bound address once Run is listening, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("api server listening", zap.String("addr", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// StateResponse is a State with its status message and next action.
type StateResponse struct {
	flow.State
	StatusMessage string      `json:"status_message"`
	NextAction    flow.Action `json:"next_action"`
}

// NewStateResponse renders s.
func NewStateResponse(s flow.State) StateResponse {
	return StateResponse{
		State:         s,
		StatusMessage: flow.StatusMessage(s),
		NextAction:    flow.NextAction(s),
	}
}

// FlowResponse adds the evaluation metadata to a StateResponse.
type FlowResponse struct {
	StateResponse
	Outcome  flow.Outcome `json:"outcome"`
	Cached   bool         `json:"cached"`
	Attempts int          `json:"attempts"`
}

// NewFlowResponse renders an evaluation result.
func NewFlowResponse(res flow.Result) FlowResponse {
	return FlowResponse{
		StateResponse: NewStateResponse(res.State),
		Outcome:       res.Outcome,
		Cached:        res.Cached,
		Attempts:      res.Attempts,
	}
}

type levelResponse struct {
	Level         uint8  `json:"level"`
	Fee           string `json:"fee"`
	MaxInvestment string `json:"max_investment"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encoding response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /v1/flow/{address}
func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	s.serveFlow(w, r, false)
}

// POST /v1/flow/{address}/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.serveFlow(w, r, true)
}

func (s *Server) serveFlow(w http.ResponseWriter, r *http.Request, refresh bool) {
	address, err := ledger.NormalizeAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	correct := true
	if s.chain != nil {
		correct, err = s.chain.CheckChain(r.Context())
		if err != nil {
			s.logger.Warn("chain check failed", zap.Error(err))
			s.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
	}

	in := flow.Input{Address: address, Connected: true, CorrectNetwork: correct}
	var res flow.Result
	if refresh {
		res = s.reducer.Refresh(r.Context(), in)
	} else {
		res = s.reducer.Evaluate(r.Context(), in)
	}

	s.writeJSON(w, http.StatusOK, NewFlowResponse(res))
}

// GET /v1/levels/{level}
func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.ParseUint(chi.URLParam(r, "level"), 10, 8)
	if err != nil || uint8(n) > ledger.MaxActivationLevel {
		s.writeError(w, http.StatusBadRequest, ledger.ErrInvalidLevel)
		return
	}

	info, err := s.ledger.ActivationLevel(r.Context(), uint8(n))
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrInvalidLevel):
		s.writeError(w, http.StatusBadRequest, err)
		return
	default:
		s.logger.Warn("activation level read failed", zap.Uint64("level", n), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	s.writeJSON(w, http.StatusOK, levelResponse{
		Level:         info.Level,
		Fee:           info.Fee.String(),
		MaxInvestment: info.MaxInvestment.String(),
	})
}
