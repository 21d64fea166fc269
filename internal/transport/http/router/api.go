package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleet-expense-server/internal/auth"
	"fleet-expense-server/internal/transport/http/ez"
	mdw "fleet-expense-server/internal/transport/http/middleware"
)

// NewAPIEngine builds the public engine: login and session actions plus
// the fleet operations, every mutation gated and audited.
func NewAPIEngine(env *ez.Env, authn *auth.Authenticator) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(16<<20),
		mdw.Timeout(10*time.Second),
		mdw.SimpleRecovery(),
		mdw.Metrics(),
		mdw.AccessLog(env.Log),
		cors.Default(),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	// Self-registered modules (fleet operations live here).
	Register(&FleetModule{env: env})
	MountAllAPI(api)

	mountAuthActions(api, env, authn)

	return r
}
