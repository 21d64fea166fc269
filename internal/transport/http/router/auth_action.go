package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fleet-expense-server/internal/auth"
	"fleet-expense-server/internal/domain"
	httpez "fleet-expense-server/internal/transport/http/ez"
	mdw "fleet-expense-server/internal/transport/http/middleware"
)

func mountAuthActions(api *gin.RouterGroup, env *httpez.Env, authn *auth.Authenticator) {
	// Login gets its own per-IP throttle on top of the global limiter.
	public := api.Group("")
	public.Use(mdw.RateLimitPerIP(5, 10))
	ezPublic := httpez.New(public)

	type loginIn struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	httpez.RegisterAction[loginIn, *auth.Session](ezPublic, env, httpez.Action[loginIn, *auth.Session]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *loginIn) (*auth.Session, error) {
			return authn.Login(c.Request.Context(), in.Username, in.Password, auth.RequestMeta{
				IP:        c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
			})
		},
	})

	// Authenticated group: any active user with a live session.
	authed := api.Group("")
	authed.Use(mdw.Authorize(env.Authz, ""))
	ezAuth := httpez.New(authed)

	type logoutOut struct {
		RevokedAt time.Time `json:"revokedAt"`
	}
	httpez.RegisterAction[struct{}, logoutOut](ezAuth, env, httpez.Action[struct{}, logoutOut]{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Binder: httpez.BindNone,
		Audit: &httpez.AuditSpec[struct{}, logoutOut]{
			Action:     domain.AuditLogout,
			TargetType: domain.EntitySession,
			TargetID: func(_ *struct{}, _ logoutOut) string {
				return "" // actor fields identify the session owner
			},
		},
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (logoutOut, error) {
			if _, err := env.Authz.Revoke(c.Request.Context(), mdw.BearerToken(c)); err != nil {
				return logoutOut{}, err
			}
			return logoutOut{RevokedAt: time.Now().UTC()}, nil
		},
	})

	type meOut struct {
		ID       string      `json:"id"`
		Username string      `json:"username"`
		Role     domain.Role `json:"role"`
	}
	httpez.RegisterAction[struct{}, meOut](ezAuth, env, httpez.Action[struct{}, meOut]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (meOut, error) {
			id := mdw.IdentityFrom(c)
			if id == nil {
				return meOut{}, httpez.Unauthorized("unauthorized")
			}
			return meOut{ID: id.UserID, Username: id.Username, Role: id.Role}, nil
		},
	})
}
