// Package validator configures gin's binding validator for the query
// parameters of the metrics API and turns its raw errors into per-field
// messages keyed by json tag.
package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var trans ut.Translator

// InitValidator registers the json tag name function and the english
// translations on gin's validator engine. Field keys in error maps then match
// the wire names callers actually sent ("range", "metrics", "origin").
func InitValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		en := en.New()
		uni := ut.New(en, en)
		trans, _ = uni.GetTranslator("en")

		_ = en_translations.RegisterDefaultTranslations(v, trans)
	}
}

// ParseValidationError flattens validation errors into a field -> message map.
// The oneof and datetime tags get messages that spell out what the metrics
// API accepts; everything else uses the stock translation.
func ParseValidationError(err error) map[string]string {
	errMap := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			ns := e.Namespace()

			if i := strings.Index(ns, "."); i != -1 {
				ns = ns[i+1:]
			}

			msg := e.Translate(trans)

			switch e.Tag() {
			case "oneof":
				msg = fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(e.Param(), " ", ", "))
			case "datetime":
				msg = "must be an RFC 3339 timestamp"
			}

			errMap[ns] = msg
		}
		return errMap
	}

	errMap["query"] = "Invalid query parameters."
	return errMap
}
