// pkg/validator/validator.go
package validator

import (
	"errors"
	"fmt"
	"strings"

	"alerta-vecinal/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	ErrNotAnImage   = errors.New("file is not an image")
	ErrImageTooBig  = errors.New("image exceeds the size limit")
	ErrNoCoordinate = errors.New("latitude and longitude must be set together")
)

// Init регистрирует кастомные правила и в движке gin binding, и в
// отдельном инстансе для проверок вне HTTP слоя. Движок gin читает теги
// binding, отдельный инстанс — теги validate моделей.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
	validate = validator.New()
	register(validate)
}

func register(v *validator.Validate) {
	// Ключ категории должен существовать в справочнике
	v.RegisterValidation("alertcategory", func(fl validator.FieldLevel) bool {
		return models.IsBuiltinCategory(fl.Field().String())
	})

	v.RegisterValidation("reaction", func(fl validator.FieldLevel) bool {
		return models.IsValidReaction(fl.Field().String())
	})
}

// Struct валидирует структуру по её validate-тегам.
func Struct(s interface{}) error {
	if validate == nil {
		Init()
	}
	return validate.Struct(s)
}

// ValidateImage проверяет вложение формы алерта: тип содержимого должен
// быть image/*, размер — не больше maxSize байт.
func ValidateImage(contentType string, size, maxSize int64) error {
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("%w: %s", ErrNotAnImage, contentType)
	}
	if size > maxSize {
		return fmt.Errorf("%w: %d > %d", ErrImageTooBig, size, maxSize)
	}
	return nil
}

// ValidateCoordinates проверяет пару координат перед отправкой формы:
// обе заданы и лежат в допустимых пределах.
func ValidateCoordinates(lat, lng *float64) error {
	if lat == nil || lng == nil {
		return ErrNoCoordinate
	}
	if *lat < -90 || *lat > 90 {
		return fmt.Errorf("latitude out of range: %f", *lat)
	}
	if *lng < -180 || *lng > 180 {
		return fmt.Errorf("longitude out of range: %f", *lng)
	}
	return nil
}
