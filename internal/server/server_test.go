package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/studenthealthcard/registration/internal/config"
	"github.com/studenthealthcard/registration/internal/registration/application"
	"github.com/studenthealthcard/registration/internal/registration/application/mocks"
	"github.com/studenthealthcard/registration/internal/registration/domain"
)

var testSecret = []byte("test-secret")

func testConfig() config.Config {
	return config.Config{
		Env:            "dev",
		Logger:         zerolog.Nop(),
		AllowedOrigins: []string{"https://app.example"},
		ThankYouPath:   "/thank-you",
		AdminJWT:       &config.JWTConfig{Issuer: "student-health-card-admin", Secret: testSecret},
	}
}

func signToken(t *testing.T, secret []byte, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func validClaims() authClaims {
	return authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "student-health-card-admin",
			Subject:   "staff-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: "Nurse Joy",
	}
}

func TestHealthz(t *testing.T) {
	cases := []struct {
		name    string
		ping    func(context.Context) error
		expCode int
	}{
		{name: "ok", ping: func(context.Context) error { return nil }, expCode: http.StatusOK},
		{name: "degraded", ping: func(context.Context) error { return errors.New("no reachable servers") }, expCode: http.StatusServiceUnavailable},
	}
	for _, tCase := range cases {
		t.Run(tCase.name, func(t *testing.T) {
			srv := NewWithBackend(testConfig(), Backend{Ping: tCase.ping})
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			require.Equal(t, tCase.expCode, rec.Code)
		})
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	srv := NewWithBackend(testConfig(), Backend{})
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/submit", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/about", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAdminRoutesRequireToken(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()
	repo := mocks.NewMockRegistrationRepository(ctl)
	repo.EXPECT().List(gomock.Any(), application.Paging{Page: 1, Limit: 20}).Return([]domain.Registration{{ID: "r1", Name: "Ada"}}, nil)

	handler := NewWithBackend(testConfig(), Backend{Registrations: repo}).Handler()

	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"
	noSubject := validClaims()
	noSubject.Subject = ""

	cases := []struct {
		name    string
		header  string
		expCode int
	}{
		{name: "missing", header: "", expCode: http.StatusUnauthorized},
		{name: "not_bearer", header: "Basic abc", expCode: http.StatusUnauthorized},
		{name: "wrong_secret", header: "Bearer " + signToken(t, []byte("other"), validClaims()), expCode: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, testSecret, expired), expCode: http.StatusUnauthorized},
		{name: "wrong_issuer", header: "Bearer " + signToken(t, testSecret, wrongIssuer), expCode: http.StatusUnauthorized},
		{name: "no_subject", header: "Bearer " + signToken(t, testSecret, noSubject), expCode: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + signToken(t, testSecret, validClaims()), expCode: http.StatusOK},
	}

	for _, tCase := range cases {
		t.Run(tCase.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/registrations", nil)
			if tCase.header != "" {
				req.Header.Set("Authorization", tCase.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, tCase.expCode, rec.Code)
		})
	}
}

func TestAdminAudience(t *testing.T) {
	cfg := testConfig()
	cfg.AdminJWTAudience = "registrations"
	srv := NewWithBackend(cfg, Backend{})

	claims := validClaims()
	_, err := srv.parseAuthToken(signToken(t, testSecret, claims))
	require.ErrorIs(t, err, errInvalidToken)

	claims.Audience = jwt.ClaimStrings{"registrations"}
	parsed, err := srv.parseAuthToken(signToken(t, testSecret, claims))
	require.NoError(t, err)
	require.Equal(t, "Nurse Joy", parsed.Name)
}

func TestAdminRoutesDisabledWithoutSecret(t *testing.T) {
	cfg := testConfig()
	cfg.AdminJWT = nil
	handler := NewWithBackend(cfg, Backend{}).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/registrations", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitThroughServer(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()
	repo := mocks.NewMockRegistrationRepository(ctl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	handler := NewWithBackend(testConfig(), Backend{Registrations: repo}).Handler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(`{"name":"Ada","email":"ada@example.com","phone":"1","dob":""}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"Data submitted successfully!","redirect":"/thank-you"}`, rec.Body.String())
}
