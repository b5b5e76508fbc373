package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"picturas-subscriptions/internal/config"
	"picturas-subscriptions/internal/domain/ports/adapter"
	"picturas-subscriptions/internal/infra/logging"
	red "picturas-subscriptions/internal/infra/redis"
	"picturas-subscriptions/internal/usecase"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Server exposes the subscription API: checkout initiation, the processor
// webhook and the caller's subscription detail.
type Server struct {
	checkoutUC  usecase.CheckoutUseCase
	reconcileUC usecase.ReconcileUseCase
	subUC       usecase.SubscriptionUseCase
	gateway     adapter.BillingGateway
	validator   *TokenValidator
	limiter     *red.RateLimiter
	cfg         config.ServerConfig
	log         *zerolog.Logger

	server *http.Server
}

func NewServer(
	checkoutUC usecase.CheckoutUseCase,
	reconcileUC usecase.ReconcileUseCase,
	subUC usecase.SubscriptionUseCase,
	gateway adapter.BillingGateway,
	validator *TokenValidator,
	limiter *red.RateLimiter,
	cfg config.ServerConfig,
	logger *zerolog.Logger,
) *Server {
	compLog := logger.With().Str("component", "web").Logger()
	return &Server{
		checkoutUC:  checkoutUC,
		reconcileUC: reconcileUC,
		subUC:       subUC,
		gateway:     gateway,
		validator:   validator,
		limiter:     limiter,
		cfg:         cfg,
		log:         &compLog,
	}
}

// Router builds the chi router; split out of Start so tests can drive it with
// httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	wrap := func(h http.Handler, mws ...Middleware) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
	ambient := []Middleware{TraceID(), Recover(s.log), RequestLog(s.log), Timeout(s.cfg.RequestTimeout)}

	r.Route("/api/v1/subscriptions", func(r chi.Router) {
		r.Method(http.MethodPost, "/create-checkout-session",
			wrap(s.authenticated(s.handleCreateCheckout), ambient...))
		r.Method(http.MethodPost, "/webhook",
			wrap(http.HandlerFunc(s.handleWebhook), ambient...))
		r.Method(http.MethodGet, "/me",
			wrap(s.authenticated(s.handleGetMine), ambient...))
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// authenticated validates the bearer credential and stashes the identity in
// the request context. Every failure is a bare 400; the response must not
// reveal which check failed.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.validator.FromRequest(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid credentials")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		ctx = logging.WithUserID(ctx, identity.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

const (
	checkoutRateLimit  = 5
	checkoutRateWindow = time.Minute
)
