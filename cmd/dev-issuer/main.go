// dev-issuer — выпуск тестовых токенов для локального запуска secure-uploader
// в режиме SU_AUTH_MODE=jwks. Генерирует RSA-ключ при старте, отдаёт JWKS
// по GET /jwks и подписывает JWT по POST /token.
//
// Не предназначен для production: ключ живёт только в памяти процесса.
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("ISSUER")
	v.AutomaticEnv()
	v.SetDefault("addr", ":8090")
	v.SetDefault("key_size", 2048)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	keySize := v.GetInt("key_size")
	if keySize < 2048 {
		keySize = 2048
	}
	logger.Info("Генерация RSA ключевой пары", slog.Int("key_size", keySize))
	key, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		logger.Error("Ошибка генерации RSA ключа", slog.String("error", err.Error()))
		os.Exit(1)
	}

	iss, err := newIssuer(context.Background(), key, logger)
	if err != nil {
		logger.Error("Ошибка инициализации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           iss.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("dev-issuer запущен", slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("dev-issuer остановлен")
}
