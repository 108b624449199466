package router

import (
	"net/http"

	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/auth"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/config"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/handler"
	mw "github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/middleware"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/service"
	"github.com/bossrsharma93-bot/Sharma-tiffin-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// New creates a Chi router with all application routes wired up.
// Admin routes sit behind RequireAdmin; the WebSocket feed checks the
// session itself.
func New(cfg *config.Config, orders *service.OrderService, gate *auth.Gate, hub *ws.Hub, log *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(mw.RequestLogger(log))
	r.Use(middleware.Recoverer)

	// CORS configuration
	origins := cfg.CORSOrigins
	allowCredentials := true
	if len(origins) == 0 {
		origins = []string{"*"}
		allowCredentials = false
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: allowCredentials,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	menuHandler := handler.NewMenuHandler(orders, log)
	menuHandler.RegisterRoutes(r)

	orderHandler := handler.NewOrderHandler(orders, log)
	orderHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/admin/orders", ws.ServeWS(hub, gate, cfg.CORSOrigins))

	authHandler := handler.NewAuthHandler(gate, cfg.IsProduction(), log)
	r.Route("/admin", func(r chi.Router) {
		// Login is public
		authHandler.RegisterRoutes(r)

		// Protected routes (require an admin session)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin(gate))

			authHandler.RegisterAdminRoutes(r)
			orderHandler.RegisterAdminRoutes(r)
		})
	})

	return r
}
