package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kiwari-pos/terminal/internal/auth"
	"github.com/kiwari-pos/terminal/internal/cart"
	"github.com/kiwari-pos/terminal/internal/config"
	"github.com/kiwari-pos/terminal/internal/handler"
	mw "github.com/kiwari-pos/terminal/internal/middleware"
	"github.com/kiwari-pos/terminal/internal/occupancy"
	"github.com/kiwari-pos/terminal/internal/remote"
	"github.com/kiwari-pos/terminal/internal/service"
	"github.com/kiwari-pos/terminal/internal/ws"
	"go.uber.org/zap"
)

// Deps are the process-wide components the local API serves.
type Deps struct {
	Config  *config.Config
	Log     *zap.Logger
	Remote  *remote.Client
	Session *auth.Session
	Cart    *cart.Cart
	Tracker *occupancy.Tracker
	Board   *service.Board
	Orders  *service.OrderService
	Prints  *service.PrintService
	Hub     *ws.Hub
}

// New creates a Chi router with all terminal routes wired up.
// Cart and order routes need a session; settings and menu writes need the
// admin role.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(d.Log))
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	sessionHandler := handler.NewSessionHandler(d.Session, d.Cart, d.Log)
	r.Route("/session", sessionHandler.RegisterRoutes)

	// WebSocket route (checks the session itself)
	upgrader := ws.NewUpgrader(d.Config.AllowedOrigins)
	r.Get("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, d.Session, upgrader, w, r)
	})

	// Routes that need a logged-in user
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireSession(d.Session))

		refHandler := handler.NewReferenceHandler(d.Remote, d.Log)
		r.Route("/settings", refHandler.RegisterSettingsRoutes)
		r.Route("/menu", refHandler.RegisterMenuRoutes)

		cartHandler := handler.NewCartHandler(d.Cart, d.Remote, d.Orders, d.Log)
		r.Route("/cart", cartHandler.RegisterRoutes)

		tableHandler := handler.NewTableHandler(d.Tracker, d.Remote, d.Remote, d.Log)
		r.Route("/tables", tableHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(d.Orders, d.Prints, d.Board, d.Log)
		r.Route("/orders", orderHandler.RegisterRoutes)
	})

	d.Log.Debug("router initialized")
	return r
}
