package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cafichain/core"
	"cafichain/crypto"
	"cafichain/eventlog"
	nativecommon "cafichain/native/common"
)

const maxBodyBytes = 1 << 20

// Config wires the server to its collaborators.
type Config struct {
	Processor *core.Processor
	Store     *eventlog.Store
	Hub       *eventlog.Hub
	Auth      AuthConfig
	RateLimit RateLimit
	Logger    *slog.Logger
}

// Server exposes the farming module over HTTP.
type Server struct {
	proc    *core.Processor
	store   *eventlog.Store
	hub     *eventlog.Hub
	auth    *Authenticator
	limiter *RateLimiter
	logger  *slog.Logger
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Processor == nil {
		return nil, fmt.Errorf("rpc: processor required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		proc:    cfg.Processor,
		store:   cfg.Store,
		hub:     cfg.Hub,
		auth:    NewAuthenticator(cfg.Auth, logger),
		limiter: NewRateLimiter(cfg.RateLimit),
		logger:  logger,
	}, nil
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.limiter.Middleware)

		v1.Get("/params", instrument("params", s.handleParams))
		v1.Get("/pool", instrument("pool", s.handlePool))
		v1.Get("/packages", instrument("packages", s.handlePackages))
		v1.Get("/packages/{id}", instrument("package", s.handlePackage))
		v1.Get("/accounts/{address}/stakes", instrument("stakes", s.handleStakes))
		v1.Get("/accounts/{address}/stakes/{index}", instrument("stake", s.handleStake))
		v1.Get("/accounts/{address}/stakes/{index}/reward", instrument("calculateReward", s.handleCalculateReward))
		v1.Get("/accounts/{address}/pending", instrument("pendingRewards", s.handlePending))
		v1.Get("/accounts/{address}/balances/{token}", instrument("balance", s.handleBalance))
		v1.Get("/accounts/{address}/allowances/{token}/{spender}", instrument("allowance", s.handleAllowance))
		v1.Get("/receipts", instrument("receipts", s.handleReceipts))
		v1.Get("/receipts/{id}", instrument("receipt", s.handleReceipt))
		v1.Get("/events/stream", s.handleEventStream)

		v1.Group(func(w chi.Router) {
			w.Use(s.auth.Middleware(ScopeWrite))
			w.Post("/stakes", instrument("stake", s.handleStakeCreate))
			w.Post("/stakes/{index}/claim", instrument("claimReward", s.handleClaim))
			w.Post("/stakes/{index}/compound", instrument("compoundReward", s.handleCompound))
			w.Post("/stakes/{index}/toggle-auto", instrument("toggleAutoStake", s.handleToggle))
			w.Post("/stakes/{index}/withdraw", instrument("withdraw", s.handleWithdraw))
			w.Post("/rewards/withdraw", instrument("withdrawRewards", s.handleWithdrawRewards))
			w.Post("/bank/approve", instrument("approve", s.handleApprove))
			w.Post("/bank/transfer", instrument("transfer", s.handleTransfer))
		})

		v1.Group(func(a chi.Router) {
			a.Use(s.auth.Middleware(ScopeAdmin))
			a.Post("/packages", instrument("createPackage", s.handleCreatePackage))
			a.Put("/packages/{id}", instrument("updatePackage", s.handleUpdatePackage))
			a.Post("/packages/{id}/apy", instrument("updateAPY", s.handleUpdateAPY))
			a.Post("/packages/{id}/active", instrument("setPackageActive", s.handleSetActive))
			a.Post("/admin/max-apy", instrument("setMaxAPY", s.handleSetMaxAPY))
			a.Post("/admin/fees", instrument("setFeeParameters", s.handleSetFees))
			a.Post("/admin/pool/fund", instrument("addRewardPoolFunds", s.handleFundPool))
			a.Post("/admin/pause", instrument("pause", s.handlePause))
			a.Post("/admin/unpause", instrument("unpause", s.handleUnpause))
			a.Post("/admin/ownership", instrument("transferOwnership", s.handleTransferOwnership))
		})
	})
	return otelhttp.NewHandler(r, "cafichain.rpc")
}

// Serve runs the HTTP server until ctx ends.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// execute runs fn through the processor and writes the receipt with result.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, op string, fn func(tx *core.Tx) (interface{}, error)) {
	caller, ok := callerFrom(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthenticated", "missing caller")
		return
	}
	var result interface{}
	receipt, err := s.proc.Execute(r.Context(), op, caller, func(tx *core.Tx) error {
		out, err := fn(tx)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Receipt: receipt, Result: result})
}

// view runs fn against current state and writes its result.
func (s *Server) view(w http.ResponseWriter, r *http.Request, fn func(tx *core.Tx) (interface{}, error)) {
	var result interface{}
	err := s.proc.View(r.Context(), func(tx *core.Tx) error {
		out, err := fn(tx)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func pathUint(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid %s %q", name, raw))
		return 0, false
	}
	return v, true
}

func pathAddress(w http.ResponseWriter, r *http.Request, name string) (crypto.Address, bool) {
	return parseAddress(w, chi.URLParam(r, name), name)
}

func parseAddress(w http.ResponseWriter, raw, field string) (crypto.Address, bool) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid %s: %v", field, err))
		return crypto.Address{}, false
	}
	return addr, true
}

func parseAmount(w http.ResponseWriter, raw, field string) (*big.Int, bool) {
	amount, err := nativecommon.ParseAmount(raw)
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("invalid %s: %v", field, err))
		return nil, false
	}
	return amount, true
}
