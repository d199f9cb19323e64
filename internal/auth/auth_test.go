package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"monthlydata/internal/store"
	"monthlydata/internal/store/memory"
	"monthlydata/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens([]byte("secret"))
	want := Identity{UserID: 7, Username: "alice", Role: models.RoleAdministrator}
	s, err := tokens.Issue(want, time.Hour)
	require.NoError(t, err)

	got, err := tokens.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.IsAdmin())
}

func TestTokensRejectExpiredAndForeign(t *testing.T) {
	tokens := NewTokens([]byte("secret"))
	past := time.Now().Add(-48 * time.Hour)
	tokens.now = func() time.Time { return past }
	old, err := tokens.Issue(Identity{UserID: 1, Username: "a"}, time.Hour)
	require.NoError(t, err)
	tokens.now = time.Now
	_, err = tokens.Parse(old)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	other := NewTokens([]byte("other"))
	foreign, err := other.Issue(Identity{UserID: 1, Username: "a"}, time.Hour)
	require.NoError(t, err)
	_, err = tokens.Parse(foreign)
	assert.Error(t, err)

	_, err = tokens.Parse("not.a.token")
	assert.Error(t, err)
}

func TestServiceRegisterLoginRefreshRevoke(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewService(st, NewTokens([]byte("secret")))

	_, err := svc.Register(ctx, "  ", "", "secret1")
	assert.ErrorIs(t, err, ErrUsernameRequired)
	_, err = svc.Register(ctx, "viewer", "", "123")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	u, err := svc.Register(ctx, "viewer", "viewer@example.com", "secret1")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	_, err = svc.Register(ctx, "viewer", "", "secret1")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Login(ctx, "viewer", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := svc.Login(ctx, "viewer", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, sess.Identity.Role)
	assert.NotEmpty(t, sess.AccessToken)
	assert.Len(t, sess.RefreshToken, 64)

	next, err := svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, next.RefreshToken)
	// the old refresh token was rotated out
	_, err = svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.NoError(t, svc.Revoke(ctx, next.RefreshToken))
	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.ErrorIs(t, svc.Revoke(ctx, "unknown"), store.ErrNotFound)
}

func TestServiceRefreshExpired(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), NewTokens([]byte("secret")))
	_, err := svc.Register(ctx, "viewer", "", "secret1")
	require.NoError(t, err)
	sess, err := svc.Login(ctx, "viewer", "secret1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(RefreshTokenTTL + time.Hour) }
	_, err = svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestSeedAdminAndResetPassword(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.New(), NewTokens([]byte("secret")))
	require.NoError(t, svc.SeedAdmin(ctx, "admin123"))
	require.NoError(t, svc.SeedAdmin(ctx, "admin123"), "seeding twice is a no-op")

	sess, err := svc.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, sess.Identity.IsAdmin())

	require.NoError(t, svc.ResetPassword(ctx, "admin", "newpass1"))
	_, err = svc.Login(ctx, "admin", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "admin", "newpass1")
	assert.NoError(t, err)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "ghost", "newpass1"), store.ErrNotFound)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := NewTokens([]byte("secret"))
	r := gin.New()
	r.GET("/read", RequireAuth(tokens), func(c *gin.Context) {
		id, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, id)
	})
	r.POST("/write", RequireAuth(tokens), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	admin, err := tokens.Issue(Identity{UserID: 1, Username: "admin", Role: models.RoleAdministrator}, time.Hour)
	require.NoError(t, err)
	viewer, err := tokens.Issue(Identity{UserID: 2, Username: "viewer", Role: models.RoleUser}, time.Hour)
	require.NoError(t, err)

	do := func(method, path, header string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/read", ""))
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/read", "Token "+viewer))
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/read", "Bearer garbage"))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/read", "Bearer "+viewer))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "/write", "Bearer "+viewer))
	assert.Equal(t, http.StatusCreated, do(http.MethodPost, "/write", "Bearer "+admin))
}
