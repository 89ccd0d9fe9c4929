package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"

	"github.com/frozn333/secure-uploader/internal/api/middleware"
)

func newTestIssuer(t *testing.T) *issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	iss, err := newIssuer(context.Background(), key, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	return iss
}

func requestToken(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, tokenResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(body)))
	var resp tokenResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("ответ не JSON: %v", err)
		}
	}
	return rec, resp
}

// TestIssuedTokenAccepted проверяет, что выданный токен проходит JWT middleware
// сервиса с ключами из /jwks.
func TestIssuedTokenAccepted(t *testing.T) {
	iss := newTestIssuer(t)
	h := iss.routes()

	jwksRec := httptest.NewRecorder()
	h.ServeHTTP(jwksRec, httptest.NewRequest(http.MethodGet, "/jwks", nil))
	if jwksRec.Code != http.StatusOK {
		t.Fatalf("GET /jwks: статус %d", jwksRec.Code)
	}
	if strings.Contains(jwksRec.Body.String(), `"d"`) {
		t.Fatal("JWKS не должен содержать приватную часть ключа")
	}

	kf, err := keyfunc.NewJWKSetJSON(json.RawMessage(jwksRec.Body.Bytes()))
	if err != nil {
		t.Fatalf("разбор JWKS: %v", err)
	}
	auth := middleware.NewJWTAuthWithKeyfunc(kf, 0, slog.New(slog.DiscardHandler))

	for _, tt := range []struct {
		name string
		body string
	}{
		{"sub", `{"sub":"alice"}`},
		{"legacy user.id", `{"sub":"alice","legacy":true}`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := requestToken(t, h, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("POST /token: статус %d, тело: %s", rec.Code, rec.Body.String())
			}

			var got string
			protected := auth.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = middleware.SubjectFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
			req.Header.Set("Authorization", "Bearer "+resp.Token)
			authRec := httptest.NewRecorder()
			protected.ServeHTTP(authRec, req)

			if got != "alice" {
				t.Errorf("ожидался пользователь alice, получено %q (статус %d)", got, authRec.Code)
			}
		})
	}
}

func TestTokenTTL(t *testing.T) {
	iss := newTestIssuer(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return now }
	h := iss.routes()

	tests := []struct {
		body string
		want time.Duration
	}{
		{`{"sub":"bob"}`, defaultTTL},
		{`{"sub":"bob","ttl_seconds":60}`, time.Minute},
		{`{"sub":"bob","ttl_seconds":999999}`, maxTTL},
	}
	for _, tt := range tests {
		rec, resp := requestToken(t, h, tt.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: статус %d", tt.body, rec.Code)
		}
		if !resp.ExpiresAt.Equal(now.Add(tt.want)) {
			t.Errorf("%s: expires_at %v, ожидалось %v", tt.body, resp.ExpiresAt, now.Add(tt.want))
		}
	}
}

func TestTokenRequestRejected(t *testing.T) {
	h := newTestIssuer(t).routes()

	for _, body := range []string{`{}`, `not json`} {
		rec, _ := requestToken(t, h, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: ожидался статус 400, получен %d", body, rec.Code)
		}
	}
}
