// Package bind decodes request bodies and validates them with go-playground/validator
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"picktrack/internal/core/tagid"
	perr "picktrack/internal/platform/errors"
	"picktrack/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// MaxBody caps a JSON request body
const MaxBody = 1 << 20

// maxTagLen bounds a normalized tag identifier
const maxTagLen = 128

type checker struct {
	v     *validator.Validate
	trans ut.Translator
}

var shared = sync.OnceValue(func() *checker {
	loc := en.New()
	trans, _ := ut.New(loc, loc).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	c := &checker{v: v, trans: trans}
	c.message("min", "{0} must be at least {1}")
	c.message("max", "{0} must be at most {1}")

	_ = v.RegisterValidation("tagid", func(fl validator.FieldLevel) bool {
		n := tagid.Normalize(fl.Field().String())
		return n != "" && len(n) <= maxTagLen
	})
	c.message("tagid", "{0} must be a tag identifier")
	return c
})

// jsonName reports fields by their wire name
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "":
		return f.Name
	case "-":
		return ""
	}
	return name
}

// message overrides the translation of tag, {0} is the field and {1} the param
func (c *checker) message(tag, text string) {
	_ = c.v.RegisterTranslation(tag, c.trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

// ParseJSON decodes exactly one JSON value into T, unknown fields rejected, then validates it
func ParseJSON[T any](r *http.Request) (T, error) {
	var out T
	defer func() {
		if err := r.Body.Close(); err != nil {
			logger.C(r.Context()).Debug().Err(err).Msg("close request body")
		}
	}()

	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		var zero T
		if errors.Is(err, io.EOF) {
			return zero, perr.JSONErrf("empty body")
		}
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		var zero T
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := Struct(out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Struct validates v; the first failing field becomes a validation error carrying that field
func Struct(v any) error {
	err := shared().v.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		logger.Get().Error().Err(err).Type("value", v).Msg("validator misuse")
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "validate %T", v)
	}
	fe := ve[0]
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", fe.Translate(shared().trans)), fe.Field())
}
