package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-guest-access/internal/config"
	"github.com/iliyamo/hotel-guest-access/internal/handler"
	"github.com/iliyamo/hotel-guest-access/internal/middleware"
)

// Handlers bundles every handler the API mounts.  main constructs the
// dependency graph and passes the finished handlers in here.
type Handlers struct {
	Auth         *handler.AuthHandler
	Customers    *handler.CustomerHandler
	Rooms        *handler.RoomHandler
	Reservations *handler.ReservationHandler
	AccessGroups *handler.AccessGroupHandler
	Credentials  *handler.CredentialHandler
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring probe this endpoint.
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the full management API.  Unauthenticated
// session operations live under /v1/auth; everything else requires a
// staff access token with an ADMIN or STAFF role.  The rate limiter
// wraps the whole protected group, and the access-group catalog reads
// sit behind the response cache because they change rarely.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/v1/auth")
	g.POST("/register", h.Auth.Register)
	g.POST("/login", h.Auth.Login)
	g.POST("/refresh", h.Auth.Refresh)
	g.POST("/logout", h.Auth.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN", "STAFF"))
	auth.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	auth.GET("/me", h.Auth.Me)

	auth.POST("/customers", h.Customers.Create)
	auth.GET("/customers", h.Customers.List)
	auth.GET("/customers/:id", h.Customers.Get)
	auth.PUT("/customers/:id", h.Customers.Update)
	auth.DELETE("/customers/:id", h.Customers.Delete)
	auth.POST("/customers/:id/credentials", h.Customers.IssueCredentials)
	auth.GET("/customers/:id/credentials", h.Customers.ListCredentials)
	auth.DELETE("/customers/:id/credentials", h.Customers.RevokeCredentials)

	auth.POST("/rooms", h.Rooms.Create)
	auth.GET("/rooms", h.Rooms.List)
	auth.GET("/rooms/:id", h.Rooms.Get)
	auth.GET("/rooms/:id/reservations", h.Rooms.ListReservations)
	auth.DELETE("/rooms/:id", h.Rooms.Delete)

	auth.POST("/reservations", h.Reservations.Create)
	auth.GET("/reservations", h.Reservations.List)
	auth.GET("/reservations/:id", h.Reservations.Get)
	auth.GET("/reservations/:id/credentials", h.Reservations.ListCredentials)
	auth.PATCH("/reservations/:id/status", h.Reservations.UpdateStatus)
	auth.POST("/sweep", h.Reservations.Sweep)

	auth.GET("/credentials/:username", h.Credentials.Get)
	auth.PUT("/credentials/:username/attributes", h.Credentials.SetAttribute)

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	auth.POST("/access-groups", h.AccessGroups.Create)
	auth.GET("/access-groups", h.AccessGroups.List, cache)
	auth.GET("/access-groups/:id", h.AccessGroups.Get, cache)
}
