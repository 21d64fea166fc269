// Package ez registers non-CRUD actions in one line each. An action
// declares the capability it needs and, when it mutates state, the audit
// record describing it; the registrar guarantees the gate runs before the
// handler and the record commits with the mutation or not at all.
package ez

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleet-expense-server/internal/audit"
	"fleet-expense-server/internal/auth"
	"fleet-expense-server/internal/domain"
	mdw "fleet-expense-server/internal/transport/http/middleware"
	resp "fleet-expense-server/internal/transport/http/response"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// Binder selects how the request payload reaches the input struct.
type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none"
)

// AErr pairs an application code with a message for the envelope.
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Conflict(msg string) error     { return &AErr{Code: resp.CodeConflict, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// Env carries the shared dependencies every action needs.
type Env struct {
	DB    *gorm.DB
	Authz *auth.Authorizer
	Audit *audit.Recorder
	Log   *zap.Logger
}

// AuditSpec describes the trail entry of a mutating action. TargetID and
// Payload run after the handler so created IDs are available.
type AuditSpec[I any, O any] struct {
	Action     domain.AuditAction
	TargetType domain.EntityType
	TargetID   func(in *I, out O) string
	Payload    func(in *I, out O) any
}

// Action defines one endpoint: I binds in, O goes out.
type Action[I any, O any] struct {
	Method     string
	Path       string
	Binder     Binder
	Capability domain.Capability // empty means public
	Audit      *AuditSpec[I, O]  // non-nil forces a transaction pairing trail and effect
	UseTx      bool
	Handler    func(c *gin.Context, tx *gorm.DB, in *I) (O, error)
}

// gormTx is implemented by the gorm-backed audit store so the mutation
// can share the transaction its record is written in.
type gormTx interface{ Tx() *gorm.DB }

func RegisterAction[I any, O any](e EZ, env *Env, a Action[I, O]) {
	h := func(c *gin.Context) {
		ctx := c.Request.Context()

		// 1) capability gate
		var ident *auth.Identity
		if a.Capability != "" {
			ident = mdw.IdentityFrom(c)
			switch {
			case ident != nil:
				// Group middleware already resolved the current role.
				if !ident.Role.HasCapability(a.Capability) {
					mdw.CountDenied(string(a.Capability))
					c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
					return
				}
			default:
				tok := mdw.BearerToken(c)
				if tok == "" {
					c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
					return
				}
				id, err := env.Authz.Authorize(ctx, tok, a.Capability)
				if err != nil {
					mdw.CountDenied(string(a.Capability))
					c.JSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
					return
				}
				ident = id
			}
		} else {
			ident = mdw.IdentityFrom(c)
		}

		// 2) bind input
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone
		}
		if bindErr != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		// 3) execute
		var out O
		var err error
		switch {
		case a.Audit != nil:
			err = env.Audit.Mutate(ctx,
				func(_ context.Context, txStore domain.AuditStore) error {
					tx := env.DB
					if p, ok := txStore.(gormTx); ok {
						tx = p.Tx()
					}
					o, e := a.Handler(c, tx, &in)
					if e != nil {
						return e
					}
					out = o
					return nil
				},
				func() *domain.AuditRecord {
					rec := &domain.AuditRecord{
						Action:     a.Audit.Action,
						TargetType: a.Audit.TargetType,
						IP:         c.ClientIP(),
						UserAgent:  c.Request.UserAgent(),
					}
					if ident != nil {
						uid := ident.UserID
						rec.ActorID = &uid
						rec.ActorName = ident.Username
					}
					if a.Audit.TargetID != nil {
						rec.TargetID = a.Audit.TargetID(&in, out)
					}
					if a.Audit.Payload != nil {
						if b, e := json.Marshal(a.Audit.Payload(&in, out)); e == nil {
							rec.Payload = b
						}
					}
					return rec
				})
		case a.UseTx:
			err = env.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				o, e := a.Handler(c, tx, &in)
				out = o
				return e
			})
		default:
			out, err = a.Handler(c, env.DB.WithContext(ctx), &in)
		}

		// 4) map errors onto the envelope
		if err != nil {
			c.JSON(http.StatusOK, toEnvelope(err))
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

func toEnvelope(err error) resp.Resp {
	var ae *AErr
	if errors.As(err, &ae) {
		return resp.Error(ae.Code, ae.Error())
	}
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return resp.Error(resp.CodeUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrDenied):
		return resp.Error(resp.CodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrDuplicateIdentity):
		return resp.Error(resp.CodeConflict, "identity already exists")
	case errors.Is(err, domain.ErrNotFound):
		return resp.Error(resp.CodeNotFound, "not found")
	case errors.Is(err, domain.ErrAuditUnavailable), errors.Is(err, domain.ErrStoreUnavailable):
		return resp.Error(resp.CodeUnavailable, "temporarily unavailable")
	default:
		// Unclassified errors carry driver or stack detail; the client
		// gets the generic message only.
		return resp.Error(resp.CodeServerError, "")
	}
}
