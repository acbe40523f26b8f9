package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/opname/internal/inventory"
	"github.com/erazemk/opname/internal/metrics"
	"github.com/erazemk/opname/internal/model"
	"github.com/erazemk/opname/internal/opname"
)

// Deps are the components the router serves.
type Deps struct {
	DB         *sql.DB
	JWTSecret  string
	Inventory  *inventory.Repository
	Categories *inventory.Registry
	Sessions   *opname.Manager
	// Metrics is optional; without it /metrics is not served.
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret}
	usersHandler := &UsersHandler{DB: d.DB}
	categoriesHandler := &CategoriesHandler{Registry: d.Categories}
	inventoryHandler := &InventoryHandler{Repo: d.Inventory}
	opnameHandler := &OpnameHandler{Sessions: d.Sessions}

	authMW := AuthMiddleware(d.JWTSecret, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	// Account.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Categories.
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(categoriesHandler.List)))
	mux.Handle("POST /api/categories", authMW(http.HandlerFunc(categoriesHandler.Create)))

	// Inventory records.
	mux.Handle("GET /api/inventory", authMW(http.HandlerFunc(inventoryHandler.List)))
	mux.Handle("POST /api/inventory", authMW(http.HandlerFunc(inventoryHandler.Create)))
	mux.Handle("GET /api/inventory/summary", authMW(http.HandlerFunc(inventoryHandler.Summary)))
	mux.Handle("GET /api/inventory/export", authMW(http.HandlerFunc(inventoryHandler.Export)))
	mux.Handle("GET /api/inventory/{id}", authMW(http.HandlerFunc(inventoryHandler.Get)))
	mux.Handle("PUT /api/inventory/{id}", authMW(http.HandlerFunc(inventoryHandler.Update)))
	mux.Handle("DELETE /api/inventory/{id}", authMW(http.HandlerFunc(inventoryHandler.Delete)))

	// Stocktake.
	mux.Handle("POST /api/opname", authMW(http.HandlerFunc(opnameHandler.Start)))
	mux.Handle("GET /api/opname", authMW(http.HandlerFunc(opnameHandler.State)))
	mux.Handle("DELETE /api/opname", authMW(http.HandlerFunc(opnameHandler.End)))
	mux.Handle("POST /api/opname/scan", authMW(http.HandlerFunc(opnameHandler.Scan)))
	mux.Handle("POST /api/opname/verify", authMW(http.HandlerFunc(opnameHandler.Verify)))
	mux.Handle("POST /api/opname/correct", authMW(http.HandlerFunc(opnameHandler.Correct)))
	mux.Handle("POST /api/opname/skip", authMW(http.HandlerFunc(opnameHandler.Skip)))

	return LoggingMiddleware(d.Logger)(mux)
}
