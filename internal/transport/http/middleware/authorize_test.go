package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fleet-expense-server/internal/auth"
	"fleet-expense-server/internal/core/token"
	"fleet-expense-server/internal/domain"
	resp "fleet-expense-server/internal/transport/http/response"
)

type oneUserStore struct{ u *domain.User }

func (s *oneUserStore) Create(context.Context, *domain.User) error { return nil }
func (s *oneUserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	if s.u != nil && s.u.ID == id {
		return s.u, nil
	}
	return nil, domain.ErrNotFound
}
func (s *oneUserStore) FindByUsername(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (s *oneUserStore) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (s *oneUserStore) List(context.Context, int, int) ([]domain.User, int64, error) {
	return nil, 0, nil
}
func (s *oneUserStore) SetActive(context.Context, string, bool) error { return nil }
func (s *oneUserStore) UpdateRole(context.Context, string, domain.Role) error {
	return nil
}

func newTestRig(t *testing.T, role domain.Role) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwter := &token.JWTer{Secret: []byte("s"), Issuer: "t", TTL: time.Hour}
	u := &domain.User{ID: "u1", Username: "someone", Role: role, Active: true}
	authz := auth.NewAuthorizer(&oneUserStore{u: u}, jwter, nil, time.Second, zap.NewNop())

	r := gin.New()
	grp := r.Group("/x")
	grp.Use(Authorize(authz, domain.CapManageFleet))
	grp.GET("/ping", func(c *gin.Context) {
		id := IdentityFrom(c)
		if id == nil {
			t.Error("identity not attached")
		}
		c.JSON(http.StatusOK, resp.OK(gin.H{"user": id.Username}))
	})

	tok, err := jwter.Issue(u.ID, u.Username, string(u.Role))
	if err != nil {
		t.Fatal(err)
	}
	return r, tok
}

func doGet(r *gin.Engine, bearer string) resp.Resp {
	req := httptest.NewRequest(http.MethodGet, "/x/ping", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out resp.Resp
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestAuthorizeMiddlewareGranted(t *testing.T) {
	r, tok := newTestRig(t, domain.RoleAdmin)
	if got := doGet(r, tok); got.Code != resp.CodeOK {
		t.Fatalf("code = %d, want %d (%s)", got.Code, resp.CodeOK, got.Msg)
	}
}

func TestAuthorizeMiddlewareMissingToken(t *testing.T) {
	r, _ := newTestRig(t, domain.RoleAdmin)
	if got := doGet(r, ""); got.Code != resp.CodeUnauthorized {
		t.Fatalf("code = %d, want %d", got.Code, resp.CodeUnauthorized)
	}
}

func TestAuthorizeMiddlewareWrongCapability(t *testing.T) {
	r, tok := newTestRig(t, domain.RoleAuditor)
	if got := doGet(r, tok); got.Code != resp.CodeForbidden {
		t.Fatalf("code = %d, want %d", got.Code, resp.CodeForbidden)
	}
}

func TestAuthorizeMiddlewareGarbageToken(t *testing.T) {
	r, _ := newTestRig(t, domain.RoleAdmin)
	if got := doGet(r, "garbage"); got.Code != resp.CodeForbidden {
		t.Fatalf("code = %d, want %d", got.Code, resp.CodeForbidden)
	}
}

func TestBearerToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if BearerToken(c) != "" {
		t.Fatal("no header must yield empty token")
	}
	c.Request.Header.Set("Authorization", "Basic abc")
	if BearerToken(c) != "" {
		t.Fatal("non-bearer scheme must yield empty token")
	}
	c.Request.Header.Set("Authorization", "Bearer abc.def")
	if BearerToken(c) != "abc.def" {
		t.Fatalf("got %q", BearerToken(c))
	}
}
