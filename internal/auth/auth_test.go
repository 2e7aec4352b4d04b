package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(testSecret, "spicebot", time.Hour)
	require.NoError(t, err)
	return m
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Issue("user-1")
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)

	userID, err := m.Verify(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerifyRejects(t *testing.T) {
	m := newTestManager(t)
	valid, err := m.Issue("user-1")
	require.NoError(t, err)

	expired := newTestManager(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue("user-1")
	require.NoError(t, err)

	otherSecret, err := NewTokenManager(strings.Repeat("x", 32), "spicebot", time.Hour)
	require.NoError(t, err)
	forged, err := otherSecret.Issue("user-1")
	require.NoError(t, err)

	otherIssuer, err := NewTokenManager(testSecret, "someone-else", time.Hour)
	require.NoError(t, err)
	foreign, err := otherIssuer.Issue("user-1")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "spicebot",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "spicebot",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "expired", token: old.AccessToken},
		{name: "wrong secret", token: forged.AccessToken},
		{name: "wrong issuer", token: foreign.AccessToken},
		{name: "alg none", token: none},
		{name: "missing subject", token: noSubject},
		{name: "tampered", token: valid.AccessToken + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenManagerConfig(t *testing.T) {
	_, err := NewTokenManager("", "spicebot", time.Hour)
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewTokenManager(testSecret, "spicebot", 0)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestMiddleware(t *testing.T) {
	m := newTestManager(t)
	token, err := m.Issue("user-42")
	require.NoError(t, err)

	handler := Middleware(m, common.DiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(userID))
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "valid", header: "Bearer " + token.AccessToken, wantCode: http.StatusOK, wantBody: "user-42"},
		{name: "lowercase scheme", header: "bearer " + token.AccessToken, wantCode: http.StatusOK, wantBody: "user-42"},
		{name: "missing", header: "", wantCode: http.StatusUnauthorized, wantBody: `"error":"authentication required"`},
		{name: "basic", header: "Basic dXNlcjpwYXNz", wantCode: http.StatusUnauthorized, wantBody: "authentication required"},
		{name: "invalid", header: "Bearer nope", wantCode: http.StatusUnauthorized, wantBody: "invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestUserIDMissing(t *testing.T) {
	_, ok := UserID(context.Background())
	assert.False(t, ok)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}

func newTestService(t *testing.T) (*Service, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewService(db.Storage, newTestManager(t), common.DiscardLogger()), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, Registration{Email: " Lan@Example.com ", Password: "s3cret-pass", FullName: "Nguyễn Lan"})
	require.NoError(t, err)
	assert.Equal(t, "lan@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.Token.AccessToken)

	cats, err := db.Storage.GetUserCategories(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, cats, "registration links the default categories")

	login, err := svc.Login(ctx, "lan@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
	require.NotNil(t, login.User.LastLogin)

	userID, err := svc.tokens.Verify(login.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, userID)

	profile, err := svc.Profile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Nguyễn Lan", profile.FullName)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		reg  Registration
	}{
		{name: "bad email", reg: Registration{Email: "not-an-email", Password: "s3cret-pass", FullName: "Lan"}},
		{name: "short password", reg: Registration{Email: "lan@example.com", Password: "short", FullName: "Lan"}},
		{name: "long password", reg: Registration{Email: "lan@example.com", Password: strings.Repeat("p", 73), FullName: "Lan"}},
		{name: "missing name", reg: Registration{Email: "lan@example.com", Password: "s3cret-pass", FullName: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.reg)
			assert.True(t, common.IsValidation(err), "got %v", err)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	reg := Registration{Email: "lan@example.com", Password: "s3cret-pass", FullName: "Lan"}
	_, err := svc.Register(ctx, reg)
	require.NoError(t, err)

	reg.Email = "LAN@example.com"
	_, err = svc.Register(ctx, reg)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Email: "lan@example.com", Password: "s3cret-pass", FullName: "Lan"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "lan@example.com", "wrong-pass")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, Registration{Email: "lan@example.com", Password: "s3cret-pass", FullName: "Lan"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, reg.User.ID, "wrong-pass", "new-s3cret")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, reg.User.ID, "s3cret-pass", "short")
	assert.True(t, common.IsValidation(err))

	require.NoError(t, svc.ChangePassword(ctx, reg.User.ID, "s3cret-pass", "new-s3cret"))

	_, err = svc.Login(ctx, "lan@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "lan@example.com", "new-s3cret")
	assert.NoError(t, err)
}
