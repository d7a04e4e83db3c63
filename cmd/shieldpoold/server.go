// server.go - HTTP API over the pool coordinators.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"shieldpool/internal/controller"
	"shieldpool/internal/coordinator"
	"shieldpool/p2p"
)

// poolHandle couples one market's coordinator and controller.
type poolHandle struct {
	name  string
	coord *coordinator.Coordinator
	ctrl  *controller.Controller
}

// Server serves the daemon API.
type Server struct {
	log     zerolog.Logger
	metrics *Metrics
	health  *HealthChecker
	limiter *ClientRateLimiter
	pools   map[string]*poolHandle
	node    *p2p.Node // nil when gossip is disabled
	mux     *http.ServeMux
}

// daemonSink feeds coordinator events into the logger, the collectors and,
// when gossip is enabled, the peer network.
type daemonSink struct {
	log     zerolog.Logger
	metrics *Metrics
	pool    string
	node    *p2p.Node // nil when gossip is disabled
}

func (s *daemonSink) OperationVerified(ev coordinator.OperationEvent) {
	s.log.Info().
		Str("pool", s.pool).
		Str("kind", ev.Kind.String()).
		Time("at", ev.Timestamp).
		Msg("operation accepted")
	s.metrics.OperationsTotal.WithLabelValues(ev.Kind.String(), "accepted").Inc()
	if ev.Kind == coordinator.KindWithdraw {
		s.metrics.WithdrawalsTotal.Inc()
	}
	if s.node != nil && ev.NewRoot != nil {
		s.node.AnnounceRoot(s.pool, ev.NewRoot)
	}
}

func (s *daemonSink) NullifierSpent(hash *big.Int) {
	s.log.Debug().Str("pool", s.pool).Str("nullifier", hash.Text(16)).Msg("nullifier spent")
	s.metrics.NullifiersSpentTotal.Inc()
}

func (s *daemonSink) CommitmentAdded(commitment *big.Int, leafIndex uint64) {
	s.log.Debug().
		Str("pool", s.pool).
		Str("commitment", commitment.Text(16)).
		Uint64("leaf_index", leafIndex).
		Msg("commitment added")
	s.metrics.CommitmentsTotal.Inc()
}

// NewServer wires the API around the given pools. node may be nil when root
// gossip is disabled.
func NewServer(log zerolog.Logger, metrics *Metrics, reg prometheus.Gatherer, cfg *Config, pools map[string]*poolHandle, node *p2p.Node) *Server {
	s := &Server{
		log:     log,
		metrics: metrics,
		health:  NewHealthChecker(version),
		limiter: NewClientRateLimiter(cfg.RateLimitBurst, cfg.RateLimitRefill, time.Second),
		pools:   pools,
		node:    node,
		mux:     http.NewServeMux(),
	}
	for name, h := range pools {
		h := h
		s.health.RegisterComponent("pool:"+name, func() error {
			if h.coord.LatestRoot() == nil && h.coord.TreeSize() > 0 {
				return fmt.Errorf("root history empty with %d leaves", h.coord.TreeSize())
			}
			return nil
		})
	}

	s.mux.HandleFunc("POST /commitments", s.limited(s.handleDeposit))
	s.mux.HandleFunc("POST /operations", s.limited(s.handleSubmit))
	s.mux.HandleFunc("GET /pool", s.handlePool)
	s.mux.HandleFunc("GET /position", s.handlePosition)
	s.mux.HandleFunc("GET /roots", s.handleRoots)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.Allow(host) {
			httpError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) poolFor(name string) (*poolHandle, bool) {
	h, ok := s.pools[name]
	return h, ok
}

func parseFieldElement(v string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(v, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("not a non-negative decimal integer: %q", v)
	}
	return n, nil
}

func parseKind(v string) (coordinator.Kind, error) {
	switch v {
	case "withdraw":
		return coordinator.KindWithdraw, nil
	case "swap":
		return coordinator.KindSwap, nil
	case "mint":
		return coordinator.KindMint, nil
	case "burn":
		return coordinator.KindBurn, nil
	default:
		return 0, fmt.Errorf("unknown operation kind %q", v)
	}
}

type depositRequest struct {
	Pool       string `json:"pool"`
	Commitment string `json:"commitment"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	h, ok := s.poolFor(req.Pool)
	if !ok {
		httpError(w, http.StatusNotFound, "unknown pool")
		return
	}
	commitment, err := parseFieldElement(req.Commitment)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	index, root, err := h.coord.Deposit(commitment)
	if err != nil {
		httpError(w, http.StatusConflict, err.Error())
		return
	}
	if s.node != nil {
		s.node.AnnounceRoot(req.Pool, root)
	}
	writeJSON(w, map[string]any{
		"leaf_index": index,
		"root":       root.String(),
	})
}

type submitRequest struct {
	Pool         string   `json:"pool"`
	Kind         string   `json:"kind"`
	Proof        string   `json:"proof"`
	PublicInputs []string `json:"public_inputs"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	h, ok := s.poolFor(req.Pool)
	if !ok {
		httpError(w, http.StatusNotFound, "unknown pool")
		return
	}
	kind, err := parseKind(req.Kind)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	proof, err := hex.DecodeString(req.Proof)
	if err != nil {
		httpError(w, http.StatusBadRequest, "proof is not hex")
		return
	}
	inputs := make([]*big.Int, 0, len(req.PublicInputs))
	for _, v := range req.PublicInputs {
		n, err := parseFieldElement(v)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		inputs = append(inputs, n)
	}

	start := time.Now()
	ev, err := h.coord.Submit(coordinator.Operation{Kind: kind, Proof: proof, PublicInputs: inputs})
	s.metrics.ProofVerifySeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.OperationsTotal.WithLabelValues(kind.String(), "rejected").Inc()
		s.log.Warn().Str("pool", req.Pool).Str("kind", kind.String()).Err(err).Msg("operation rejected")
		httpError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.metrics.PoolLiquidity.WithLabelValues(req.Pool).Set(poolLiquidityValue(h))
	writeJSON(w, map[string]any{
		"kind":      ev.Kind.String(),
		"timestamp": ev.Timestamp,
		"outputs":   ev.Outputs,
	})
}

func poolLiquidityValue(h *poolHandle) float64 {
	f, _ := new(big.Float).SetInt(h.ctrl.Pool().Liquidity()).Float64()
	return f
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	h, ok := s.poolFor(r.URL.Query().Get("pool"))
	if !ok {
		httpError(w, http.StatusNotFound, "unknown pool")
		return
	}
	pool := h.ctrl.Pool()
	fees0, fees1 := pool.ProtocolFees()
	writeJSON(w, map[string]any{
		"token_low":      pool.TokenLow.String(),
		"token_high":     pool.TokenHigh.String(),
		"fee_rate":       pool.Fee.FeeRate,
		"tick_spacing":   pool.Fee.TickSpacing,
		"sqrt_price":     pool.SqrtPrice().String(),
		"tick":           pool.Tick(),
		"liquidity":      pool.Liquidity().String(),
		"protocol_fees0": fees0.String(),
		"protocol_fees1": fees1.String(),
	})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	h, ok := s.poolFor(r.URL.Query().Get("pool"))
	if !ok {
		httpError(w, http.StatusNotFound, "unknown pool")
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		httpError(w, http.StatusBadRequest, "key query parameter required")
		return
	}
	pos, err := h.ctrl.Pool().PositionAt(key)
	if err != nil {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, map[string]any{
		"liquidity":    pos.Liquidity.String(),
		"tokens_owed0": pos.TokensOwed0.String(),
		"tokens_owed1": pos.TokensOwed1.String(),
	})
}

func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	h, ok := s.poolFor(r.URL.Query().Get("pool"))
	if !ok {
		httpError(w, http.StatusNotFound, "unknown pool")
		return
	}
	resp := map[string]any{
		"tree_size":  h.coord.TreeSize(),
		"nullifiers": h.coord.NullifierCount(),
	}
	if root := h.coord.LatestRoot(); root != nil {
		resp["latest_root"] = root.String()
	}
	writeJSON(w, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.health.CheckHealth()
	w.Header().Set("Content-Type", "application/json")
	if health.OverallStatus == Unhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}
