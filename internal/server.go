package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/foodbridge/server/internal/assignment"
	"github.com/foodbridge/server/internal/config"
	"github.com/foodbridge/server/internal/dashboard"
	"github.com/foodbridge/server/internal/donation"
	"github.com/foodbridge/server/internal/geocode"
	"github.com/foodbridge/server/internal/identity"
	"github.com/foodbridge/server/internal/pushsubscription"
	"github.com/foodbridge/server/internal/volunteer"
	"github.com/foodbridge/server/pkg/cerr"
	"github.com/foodbridge/server/pkg/clog"
)

type Server struct {
	server             *http.Server
	env                *config.Env
	resolver           identity.Resolver
	donationServer     *donation.Server
	assignmentServer   *assignment.Server
	volunteerServer    *volunteer.Server
	dashboardServer    *dashboard.Server
	geocodeServer      *geocode.Server
	subscriptionServer *pushsubscription.Server
}

func NewServer(
	env *config.Env,
	resolver identity.Resolver,
	donationServer *donation.Server,
	assignmentServer *assignment.Server,
	volunteerServer *volunteer.Server,
	dashboardServer *dashboard.Server,
	geocodeServer *geocode.Server,
	subscriptionServer *pushsubscription.Server,
) *Server {
	return &Server{
		env:                env,
		resolver:           resolver,
		donationServer:     donationServer,
		assignmentServer:   assignmentServer,
		volunteerServer:    volunteerServer,
		dashboardServer:    dashboardServer,
		geocodeServer:      geocodeServer,
		subscriptionServer: subscriptionServer,
	}
}

// ListenAndServe starts the HTTP server. The provided context is the base
// context for all incoming requests, so cancelling it (shutdown signal) also
// cancels in-flight request contexts.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
			identity.Middleware(s.resolver),
		)
		s.donationServer.RegisterRoutes(r)
		s.assignmentServer.RegisterRoutes(r)
		s.volunteerServer.RegisterRoutes(r)
		s.dashboardServer.RegisterRoutes(r)
		s.geocodeServer.RegisterRoutes(r)
		s.subscriptionServer.RegisterRoutes(r)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(mux), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
