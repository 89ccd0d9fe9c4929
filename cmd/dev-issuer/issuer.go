package main

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/frozn333/secure-uploader/internal/api/errors"
	"github.com/frozn333/secure-uploader/internal/api/middleware"
)

const (
	keyID      = "dev-key-1"
	issuerName = "dev-issuer"
	defaultTTL = time.Hour
	maxTTL     = 24 * time.Hour
)

// tokenRequest — тело POST /token.
type tokenRequest struct {
	Sub        string `json:"sub"`
	TTLSeconds int    `json:"ttl_seconds"`
	// Legacy — идентичность в user.id вместо sub (формат старых клиентов)
	Legacy bool `json:"legacy"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// issuer подписывает токены ключом RS256 и публикует JWKS.
type issuer struct {
	privateKey *rsa.PrivateKey
	jwks       []byte
	now        func() time.Time
	logger     *slog.Logger
}

func newIssuer(ctx context.Context, key *rsa.PrivateKey, logger *slog.Logger) (*issuer, error) {
	jwk, err := jwkset.NewJWKFromKey(&key.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{
			ALG: jwkset.AlgRS256,
			KID: keyID,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWK: %w", err)
	}

	storage := jwkset.NewMemoryStorage()
	if err := storage.KeyWrite(ctx, jwk); err != nil {
		return nil, fmt.Errorf("запись JWK: %w", err)
	}
	raw, err := storage.JSONPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("сериализация JWKS: %w", err)
	}

	return &issuer{
		privateKey: key,
		jwks:       raw,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "dev_issuer")),
	}, nil
}

func (s *issuer) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/jwks", s.handleJWKS)
	r.Post("/token", s.handleToken)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return r
}

func (s *issuer) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(s.jwks)
}

func (s *issuer) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}
	if req.Sub == "" {
		apierrors.ValidationError(w, "Поле 'sub' обязательно")
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if ttl > maxTTL {
		ttl = maxTTL
	}

	token, expiresAt, err := s.sign(req.Sub, req.Legacy, ttl)
	if err != nil {
		s.logger.Error("Ошибка подписи JWT", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Ошибка генерации токена")
		return
	}

	s.logger.Info("Токен выдан",
		slog.String("sub", req.Sub),
		slog.Bool("legacy", req.Legacy),
		slog.Duration("ttl", ttl),
	)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{Token: token, ExpiresAt: expiresAt})
}

// sign выпускает токен в формате, который принимает middleware сервиса.
func (s *issuer) sign(sub string, legacy bool, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
		},
	}
	if legacy {
		claims.User = &middleware.LegacyUser{ID: sub}
	} else {
		claims.Subject = sub
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID

	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt.UTC(), nil
}
