package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// testKeyID — идентификатор ключа для тестов.
const testKeyID = "test-key"

var testSecret = []byte("secret-for-tests-only")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// generateTestToken генерирует RS256 JWT токен для тестов.
func generateTestToken(key *rsa.PrivateKey, claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	return token.SignedString(key)
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}

	data, _ := json.Marshal(jwks)
	return data
}

// newTestJWTAuth создаёт JWTAuth с RSA ключом для тестов.
func newTestJWTAuth(t *testing.T) (*JWTAuth, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc из JWKS JSON: %v", err)
	}
	return NewJWTAuthWithKeyfunc(kf, 5*time.Second, testLogger()), key
}

func validClaims(sub string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func signHMAC(t *testing.T, claims Claims, secret []byte) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// subjectRecorder — обработчик, запоминающий идентификатор из контекста.
func subjectRecorder(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func mustNotBeCalled(t *testing.T) http.Handler {
	return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler не должен быть вызван")
	})
}

// TestJWTAuth_ValidToken проверяет валидный RS256 JWT.
func TestJWTAuth_ValidToken(t *testing.T) {
	auth, key := newTestJWTAuth(t)
	var sub string
	handler := auth.Middleware()(subjectRecorder(&sub))

	tokenString, err := generateTestToken(key, validClaims("test-user"))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d, тело: %s", rec.Code, rec.Body.String())
	}
	if sub != "test-user" {
		t.Errorf("ожидался sub=test-user, получен %s", sub)
	}
}

// TestJWTAuth_LegacyUserID проверяет user.id при отсутствии sub.
func TestJWTAuth_LegacyUserID(t *testing.T) {
	auth, key := newTestJWTAuth(t)
	var sub string
	handler := auth.Middleware()(subjectRecorder(&sub))

	claims := validClaims("")
	claims.User = &LegacyUser{ID: "legacy-42"}
	tokenString, err := generateTestToken(key, claims)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	if sub != "legacy-42" {
		t.Errorf("ожидался sub=legacy-42, получен %s", sub)
	}
}

// TestJWTAuth_LegacyHeader проверяет заголовок x-auth-token.
func TestJWTAuth_LegacyHeader(t *testing.T) {
	auth, key := newTestJWTAuth(t)
	var sub string
	handler := auth.Middleware()(subjectRecorder(&sub))

	tokenString, _ := generateTestToken(key, validClaims("header-user"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.Header.Set(LegacyTokenHeader, tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}
	if sub != "header-user" {
		t.Errorf("ожидался sub=header-user, получен %s", sub)
	}
}

// TestJWTAuth_Rejected проверяет отказ для невалидных запросов.
func TestJWTAuth_Rejected(t *testing.T) {
	auth, key := newTestJWTAuth(t)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	handler := auth.Middleware()(mustNotBeCalled(t))

	expired := validClaims("test-user")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	expiredToken, _ := generateTestToken(key, expired)

	noExp := validClaims("test-user")
	noExp.ExpiresAt = nil
	noExpToken, _ := generateTestToken(key, noExp)

	noSubToken, _ := generateTestToken(key, validClaims(""))
	foreignToken, _ := generateTestToken(otherKey, validClaims("test-user"))
	hmacToken := signHMAC(t, validClaims("test-user"), testSecret)

	tests := []struct {
		name   string
		header string
	}{
		{"нет заголовка", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"без префикса bearer", "token123"},
		{"пустой bearer", "Bearer "},
		{"мусор", "Bearer not.a.jwt"},
		{"просрочен", "Bearer " + expiredToken},
		{"без exp", "Bearer " + noExpToken},
		{"без sub", "Bearer " + noSubToken},
		{"чужой ключ", "Bearer " + foreignToken},
		{"HS256 вместо RS256", "Bearer " + hmacToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался статус 401, получен %d", rec.Code)
			}
			var body map[string]map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("ответ не JSON: %v", err)
			}
			if body["error"]["code"] != "UNAUTHORIZED" {
				t.Errorf("ожидался код UNAUTHORIZED, получен %q", body["error"]["code"])
			}
		})
	}
}

// TestHMACAuth проверяет режим HS256.
func TestHMACAuth(t *testing.T) {
	auth := NewHMACAuth(testSecret, 0, testLogger())

	t.Run("валидный токен", func(t *testing.T) {
		var sub string
		handler := auth.Middleware()(subjectRecorder(&sub))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
		req.Header.Set("Authorization", "Bearer "+signHMAC(t, validClaims("alice"), testSecret))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("ожидался статус 200, получен %d", rec.Code)
		}
		if sub != "alice" {
			t.Errorf("ожидался sub=alice, получен %s", sub)
		}
	})

	t.Run("неверный секрет", func(t *testing.T) {
		handler := auth.Middleware()(mustNotBeCalled(t))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
		req.Header.Set("Authorization", "Bearer "+signHMAC(t, validClaims("alice"), []byte("other")))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("ожидался статус 401, получен %d", rec.Code)
		}
	})

	t.Run("alg none", func(t *testing.T) {
		handler := auth.Middleware()(mustNotBeCalled(t))
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("alice")).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
		req.Header.Set("Authorization", "Bearer "+unsigned)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("ожидался статус 401, получен %d", rec.Code)
		}
	})
}

// TestSubjectFromContext_Empty проверяет контекст без идентификатора.
func TestSubjectFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SubjectFromContext(req.Context()); got != "" {
		t.Errorf("ожидалась пустая строка, получено %q", got)
	}
	ctx := ContextWithSubject(req.Context(), "bob")
	if got := SubjectFromContext(ctx); got != "bob" {
		t.Errorf("ожидался bob, получено %q", got)
	}
}
