package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fleet-expense-server/internal/auth"
	"fleet-expense-server/internal/bootstrap"
	"fleet-expense-server/internal/core/cache"
	"fleet-expense-server/internal/domain"
	"fleet-expense-server/internal/repo"
	httpez "fleet-expense-server/internal/transport/http/ez"
	mdw "fleet-expense-server/internal/transport/http/middleware"
)

// NewAdminEngine builds the back-office engine: user administration,
// audit trail queries and the database reset. Every route requires a
// session; each action declares its own capability on top.
func NewAdminEngine(env *httpez.Env, boot *bootstrap.Service, cc *cache.Cache, hasher auth.PasswordHasher) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		ginzap.Ginzap(env.Log, time.RFC3339, true),
		ginzap.RecoveryWithZap(env.Log, true),
		mdw.RateLimit(50, 100),
		mdw.Metrics(),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	admin := r.Group("/admin/v1")
	admin.Use(mdw.Authorize(env.Authz, ""))

	Register(&AdminOpsModule{env: env, boot: boot, cache: cc, hasher: hasher})
	MountAllAdmin(admin)

	return r
}

// AdminOpsModule carries the extra collaborators the admin surface needs
// beyond the shared env: the reset service, the cache and the hasher.
type AdminOpsModule struct {
	env    *httpez.Env
	boot   *bootstrap.Service
	cache  *cache.Cache
	hasher auth.PasswordHasher
}

func (m *AdminOpsModule) MountAdmin(admin *gin.RouterGroup) {
	e := httpez.New(admin)
	m.mountUsers(e)
	m.mountAudit(e)
	m.mountReset(e)
}

// ---------- user administration ----------

type createUserIn struct {
	Username string `json:"username" binding:"required"`
	FullName string `json:"fullName"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

func (m *AdminOpsModule) mountUsers(e httpez.EZ) {
	env := m.env

	type listOut struct {
		Total int64         `json:"total"`
		Items []domain.User `json:"items"`
	}
	httpez.RegisterAction[listQ, listOut](e, env, httpez.Action[listQ, listOut]{
		Method:     http.MethodGet,
		Path:       "/users",
		Binder:     httpez.BindQuery,
		Capability: domain.CapManageUsers,
		Handler: func(c *gin.Context, tx *gorm.DB, in *listQ) (listOut, error) {
			var out listOut
			items, total, err := repo.NewUserRepo(tx).List(c.Request.Context(), in.Offset, in.limit())
			if err != nil {
				return out, err
			}
			out.Total, out.Items = total, items
			return out, nil
		},
	})

	httpez.RegisterAction[createUserIn, *domain.User](e, env, httpez.Action[createUserIn, *domain.User]{
		Method:     http.MethodPost,
		Path:       "/users",
		Binder:     httpez.BindJSON,
		Capability: domain.CapManageUsers,
		Audit: &httpez.AuditSpec[createUserIn, *domain.User]{
			Action:     domain.AuditCreate,
			TargetType: domain.EntityUser,
			TargetID:   func(_ *createUserIn, out *domain.User) string { return out.ID },
			Payload: func(in *createUserIn, _ *domain.User) any {
				// Never echo the plaintext password into the trail.
				return gin.H{"username": in.Username, "email": in.Email, "role": in.Role}
			},
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *createUserIn) (*domain.User, error) {
			role, ok := parseRole(in.Role)
			if !ok {
				return nil, httpez.BadRequest("unknown role")
			}
			digest, err := m.hasher.Hash(in.Password)
			if err != nil {
				return nil, err
			}
			u := &domain.User{
				Username:     in.Username,
				FullName:     in.FullName,
				Email:        in.Email,
				PasswordHash: digest,
				Role:         role,
				Active:       true,
			}
			if err := repo.NewUserRepo(tx).Create(c.Request.Context(), u); err != nil {
				return nil, err
			}
			return u, nil
		},
	})

	m.mountActiveToggle(e, "/users/:id/activate", true)
	m.mountActiveToggle(e, "/users/:id/deactivate", false)

	type roleIn struct {
		Role string `json:"role" binding:"required"`
	}
	httpez.RegisterAction[roleIn, gin.H](e, env, httpez.Action[roleIn, gin.H]{
		Method:     http.MethodPost,
		Path:       "/users/:id/role",
		Binder:     httpez.BindJSON,
		Capability: domain.CapManageUsers,
		Audit: &httpez.AuditSpec[roleIn, gin.H]{
			Action:     domain.AuditUpdate,
			TargetType: domain.EntityUser,
			TargetID:   func(_ *roleIn, out gin.H) string { s, _ := out["id"].(string); return s },
			Payload:    func(in *roleIn, _ gin.H) any { return gin.H{"role": in.Role} },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *roleIn) (gin.H, error) {
			role, ok := parseRole(in.Role)
			if !ok {
				return nil, httpez.BadRequest("unknown role")
			}
			id := c.Param("id")
			if err := repo.NewUserRepo(tx).UpdateRole(c.Request.Context(), id, role); err != nil {
				return nil, err
			}
			return gin.H{"id": id, "role": string(role)}, nil
		},
	})
}

func (m *AdminOpsModule) mountActiveToggle(e httpez.EZ, path string, active bool) {
	httpez.RegisterAction[struct{}, gin.H](e, m.env, httpez.Action[struct{}, gin.H]{
		Method:     http.MethodPost,
		Path:       path,
		Binder:     httpez.BindNone,
		Capability: domain.CapManageUsers,
		Audit: &httpez.AuditSpec[struct{}, gin.H]{
			Action:     domain.AuditUpdate,
			TargetType: domain.EntityUser,
			TargetID:   func(_ *struct{}, out gin.H) string { s, _ := out["id"].(string); return s },
			Payload:    func(_ *struct{}, _ gin.H) any { return gin.H{"active": active} },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := repo.NewUserRepo(tx).SetActive(c.Request.Context(), id, active); err != nil {
				return nil, err
			}
			return gin.H{"id": id, "active": active}, nil
		},
	})
}

func parseRole(s string) (domain.Role, bool) {
	switch domain.Role(s) {
	case domain.RoleAdmin:
		return domain.RoleAdmin, true
	case domain.RoleAuditor:
		return domain.RoleAuditor, true
	}
	return "", false
}

// ---------- audit trail ----------

type auditQ struct {
	ActorID    string `form:"actorId"`
	Action     string `form:"action"`
	TargetType string `form:"targetType"`
	TargetID   string `form:"targetId"`
	From       string `form:"from"` // RFC3339
	To         string `form:"to"`
	Offset     int    `form:"offset,default=0"`
	Limit      int    `form:"limit,default=50"`
}

type auditPage struct {
	Total int64                `json:"total"`
	Items []domain.AuditRecord `json:"items"`
}

func (m *AdminOpsModule) mountAudit(e httpez.EZ) {
	httpez.RegisterAction[auditQ, *auditPage](e, m.env, httpez.Action[auditQ, *auditPage]{
		Method:     http.MethodGet,
		Path:       "/audit",
		Binder:     httpez.BindQuery,
		Capability: domain.CapViewAudit,
		Handler: func(c *gin.Context, _ *gorm.DB, in *auditQ) (*auditPage, error) {
			f := domain.AuditFilter{
				ActorID:    in.ActorID,
				Action:     domain.AuditAction(in.Action),
				TargetType: domain.EntityType(in.TargetType),
				TargetID:   in.TargetID,
				Offset:     in.Offset,
				Limit:      in.Limit,
			}
			if in.From != "" {
				t, err := time.Parse(time.RFC3339, in.From)
				if err != nil {
					return nil, httpez.BadRequest("from: want RFC3339")
				}
				f.From = t
			}
			if in.To != "" {
				t, err := time.Parse(time.RFC3339, in.To)
				if err != nil {
					return nil, httpez.BadRequest("to: want RFC3339")
				}
				f.To = t
			}

			// Trail rows are append-only, so a short TTL only delays
			// visibility of the newest entries.
			key := fmt.Sprintf("audit:q:%s:%s:%s:%s:%s:%s:%d:%d",
				f.ActorID, f.Action, f.TargetType, f.TargetID, in.From, in.To, f.Offset, f.Limit)
			return cache.GetOrLoadJSON[auditPage](m.cache, c.Request.Context(), key, 10*time.Second,
				func(ctx2 context.Context) (*auditPage, error) {
					items, total, err := m.env.Audit.Search(ctx2, f)
					if err != nil {
						return nil, err
					}
					return &auditPage{Total: total, Items: items}, nil
				})
		},
	})
}

// ---------- reset ----------

func (m *AdminOpsModule) mountReset(e httpez.EZ) {
	type resetOut struct {
		Accounts []string `json:"accounts"`
	}
	httpez.RegisterAction[struct{}, resetOut](e, m.env, httpez.Action[struct{}, resetOut]{
		Method:     http.MethodPost,
		Path:       "/reset",
		Binder:     httpez.BindNone,
		Capability: domain.CapResetDatabase,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (resetOut, error) {
			var out resetOut
			accounts, err := m.boot.Reset(c.Request.Context())
			if err != nil {
				return out, err
			}
			for _, a := range accounts {
				out.Accounts = append(out.Accounts, a.Username)
			}

			// The wipe clears the trail itself, so the RESET record is
			// written after the fact and becomes the first row of the
			// new trail. The actor survives in the token, not the store.
			rec := &domain.AuditRecord{
				Action:     domain.AuditReset,
				TargetType: domain.EntityDatabase,
				IP:         c.ClientIP(),
				UserAgent:  c.Request.UserAgent(),
			}
			if id := mdw.IdentityFrom(c); id != nil {
				rec.ActorID = &id.UserID
				rec.ActorName = id.Username
			}
			if _, err := m.env.Audit.Record(c.Request.Context(), rec); err != nil {
				return out, err
			}
			return out, nil
		},
	})
}
