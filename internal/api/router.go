// Package api exposes the services over the JSON HTTP API under /api.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/receiptsplit/internal/auth"
	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/service"
	"github.com/mmynk/receiptsplit/internal/telemetry"
	"github.com/mmynk/receiptsplit/pkg/response"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router wires together.
type Deps struct {
	Auth          *service.AuthService
	Expenses      *service.ExpenseService
	Friends       *service.FriendService
	Receipts      *service.ReceiptService
	Notifications *service.NotificationService
	JWT           *auth.JWTManager
	Store         Pinger
	Metrics       *telemetry.Metrics
	Logger        *slog.Logger

	// CORSOrigins is a comma-separated list of allowed browser origins.
	CORSOrigins string
	// ReceiptsDir, when set, is served read-only under /receipts/.
	ReceiptsDir string
}

// NewRouter builds the HTTP handler for the whole API.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger, d.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/health", healthHandler(d.Store))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}
	if d.ReceiptsDir != "" {
		r.Handle("/receipts/*", receiptFiles(d.ReceiptsDir))
	}

	requireAuth := middleware.RequireAuth(d.JWT)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", (&authHandler{svc: d.Auth, requireAuth: requireAuth}).Routes())

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Mount("/expenses", (&expenseHandler{svc: d.Expenses, logger: logger}).Routes())
			r.Mount("/friends", (&friendHandler{svc: d.Friends}).Routes())
			r.Mount("/receipts", (&receiptHandler{svc: d.Receipts, logger: logger}).Routes())
			r.Mount("/notifications", (&notificationHandler{svc: d.Notifications, logger: logger}).Routes())
		})
	})

	return r
}

func healthHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				response.Error(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// receiptFiles serves stored receipt images without directory listings.
func receiptFiles(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			response.NotFound(w, "Not Found")
			return
		}
		files.ServeHTTP(w, r)
	})
}

// callerFrom builds the service caller from the identity RequireAuth stored.
func callerFrom(r *http.Request) service.Caller {
	return service.Caller{
		Email: middleware.GetUserID(r.Context()),
		Name:  middleware.GetName(r.Context()),
	}
}
