// Package service exposes the engines over HTTP: JSON request/response
// bodies, bearer-token authentication, and one stable error code per engine
// sentinel.
package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kweku/susu/internal/auth"
	"github.com/kweku/susu/internal/circle"
	"github.com/kweku/susu/internal/credit"
	"github.com/kweku/susu/internal/identity"
	"github.com/kweku/susu/internal/ledger"
	"github.com/kweku/susu/internal/middleware"
)

// Service bundles the engines behind the HTTP API.
type Service struct {
	circles    *circle.Engine
	credit     *credit.Engine
	identities *identity.Registry
	ledger     ledger.Ledger

	authenticator *auth.PasswordAuthenticator
	users         auth.UserStorage
	jwt           *auth.JWTManager
}

// New creates a Service.
func New(
	circles *circle.Engine,
	creditEngine *credit.Engine,
	identities *identity.Registry,
	lgr ledger.Ledger,
	authenticator *auth.PasswordAuthenticator,
	users auth.UserStorage,
	jwt *auth.JWTManager,
) *Service {
	return &Service{
		circles:       circles,
		credit:        creditEngine,
		identities:    identities,
		ledger:        lgr,
		authenticator: authenticator,
		users:         users,
		jwt:           jwt,
	}
}

// Router assembles the full route tree. registry may be nil to skip the
// metrics endpoint and request counters.
func (s *Service) Router(registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging)
	if registry != nil {
		r.Use(middleware.Metrics(registry))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", s.handleRegister)
		api.Post("/auth/login", s.handleLogin)

		// Read-only queries work without a session.
		api.Group(func(public chi.Router) {
			public.Use(middleware.OptionalAuth(s.jwt))
			public.Get("/circles/{id}", s.handleGetCircle)
			public.Get("/circles/by-invite/{code}", s.handleGetCircleByInvite)
			public.Get("/circles/{id}/members/{principal}", s.handleGetMember)
			public.Get("/circles/{id}/progress", s.handleProgress)
			public.Get("/circles/count", s.handleCircleCount)

			public.Get("/credit/{uid}/score", s.handleScore)
			public.Get("/credit/{uid}/profile", s.handleProfile)
			public.Get("/credit/{uid}/tier", s.handleTier)
			public.Get("/credit/{uid}/breakdown", s.handleBreakdown)
			public.Get("/credit/{uid}/history", s.handleHistory)
			public.Get("/credit/{uid}/on-time-rate", s.handleOnTimeRate)
			public.Get("/credit/users/count", s.handleUserCount)
			public.Post("/credit/decay/{uid}", s.handleDecay)

			public.Get("/identity/{principal}", s.handleResolveID)
			public.Get("/identity/by-id/{uid}", s.handleResolveWallet)
			public.Get("/identity/count", s.handleBindingCount)
		})

		// Everything that mutates requires a session.
		api.Group(func(private chi.Router) {
			private.Use(middleware.RequireAuth(s.jwt))
			private.Post("/circles", s.handleCreateCircle)
			private.Post("/circles/{id}/join", s.handleJoin)
			private.Post("/circles/join", s.handleJoinByInvite)
			private.Post("/circles/{id}/contribute", s.handleContribute)
			private.Post("/circles/{id}/payout", s.handlePayout)
			private.Post("/circles/{id}/start", s.handleStart)
			private.Post("/circles/{id}/cancel", s.handleCancel)

			private.Post("/credit/payments", s.handleRecordPayment)
			private.Post("/credit/missed", s.handleRecordMissed)
			private.Post("/credit/completions", s.handleRecordCompletion)
			private.Post("/credit/callers", s.handleAuthorizeCaller)
			private.Delete("/credit/callers", s.handleRevokeCaller)
			private.Get("/credit/callers", s.handleListCallers)

			private.Post("/identity/bind", s.handleBind)
			private.Post("/identity/{principal}/extend", s.handleExtendBinding)

			private.Get("/ledger/{account}/balance", s.handleBalance)
		})
	})
	return r
}
