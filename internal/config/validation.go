package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate — единственный экземпляр валидатора (кэширует разбор тегов).
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// В ошибках используем имена ключей конфигурации, а не Go-полей
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// Validate проверяет конфигурацию по тегам структуры и дополнительным правилам.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if cfg.BlobBackend == BlobS3 && (cfg.S3AccessKey == "") != (cfg.S3SecretKey == "") {
		return fmt.Errorf("SU_S3_ACCESS_KEY и SU_S3_SECRET_KEY задаются только вместе")
	}
	if cfg.AuthMode == AuthHMAC && len(cfg.JWTSecret) < 32 {
		return fmt.Errorf("SU_JWT_SECRET: секрет HS256 должен быть не короче 32 байт")
	}

	return nil
}

// formatValidationError собирает ошибки валидатора в одно сообщение
// с именами переменных окружения.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msgs = append(msgs, fmt.Sprintf("%s: не пройдена проверка '%s' (значение: %v)",
			"SU_"+strings.ToUpper(e.Field()), e.Tag(), e.Value()))
	}
	return fmt.Errorf("ошибка валидации конфигурации: %s", strings.Join(msgs, "; "))
}
