/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging through zap, tagged with the request ID
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/activities/*     Activity CRUD and completion
  /api/days/*           Bulk day operations
  /api/view/*           Navigation state
  /api/rewards/*        Catalog and redemption
  /api/coupons/*        Coupon use
  /api/checklists/*     Checklist boards
  /api/ws               Change feed

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured. An empty
// origins list allows any origin.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", h.GetSnapshot)
		r.Get("/categories", h.ListCategories)

		// Activity routes
		r.Route("/activities", func(r chi.Router) {
			r.Post("/", h.CreateActivity)
			r.Patch("/{id}", h.UpdateActivity)
			r.Post("/{id}/toggle", h.ToggleActivity)
			r.Delete("/{id}", h.DeleteActivity)
		})
		r.Delete("/days/{date}", h.ClearDay)

		// Calendar projections
		r.Get("/day", h.GetDay)
		r.Get("/month", h.GetMonth)
		r.Get("/year", h.GetYear)

		// Navigation routes
		r.Route("/view", func(r chi.Router) {
			r.Get("/", h.GetView)
			r.Put("/day", h.SetDay)
			r.Post("/day/shift", h.ShiftDay)
			r.Post("/month/shift", h.ShiftMonth)
			r.Post("/year/shift", h.ShiftYear)
			r.Put("/tab", h.SetTab)
		})

		// Reward routes
		r.Route("/rewards", func(r chi.Router) {
			r.Get("/", h.GetCatalog)
			r.Post("/{key}/redeem", h.Redeem)
		})
		r.Get("/wallet", h.GetWallet)
		r.Get("/ledger", h.GetLedger)
		r.Post("/coupons/{id}/use", h.UseCoupon)

		// Checklist routes
		r.Route("/checklists", func(r chi.Router) {
			r.Get("/", h.ListChecklists)
			r.Post("/", h.CreateList)
			r.Put("/active", h.SelectList)
			r.Delete("/{id}", h.DeleteList)
			r.Post("/{id}/items", h.AddItem)
			r.Post("/{id}/items/{item}/toggle", h.ToggleItem)
			r.Delete("/{id}/items/{item}", h.DeleteItem)
		})

		r.Get("/ws", h.Hub.ServeWS)
	})

	return r
}

// RequestLogger logs one line per request at info, or warn for 5xx.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				}
				if ww.Status() >= http.StatusInternalServerError {
					log.Warn("request", fields...)
					return
				}
				log.Info("request", fields...)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
