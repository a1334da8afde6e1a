package utils

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// NewValidator returns a struct validator whose messages are translated to English and refer to
// fields by their JSON names.
func NewValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, err
	}
	return validate, trans, nil
}

func ValidatePassword(password string, minLength int) error {
	if utf8.RuneCountInString(password) < minLength {
		return domain.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", minLength))
	}
	return nil
}
