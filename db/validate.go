package db

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

// Instantiate the row validator for use.
func init() {
	validate = validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateRows checks every row of a batch and rejects the whole batch on the first invalid row,
// the way a relational store rejects a multi-row insert.
func validateRows[T any](collection string, rows []T) error {
	for i := range rows {
		if err := validate.Struct(rows[i]); err != nil {
			var vErrs validator.ValidationErrors
			if !errors.As(err, &vErrs) {
				return &BatchError{Collection: collection, Err: err}
			}
			msgs := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				msgs = append(msgs, fe.Translate(translator))
			}
			return &BatchError{
				Collection: collection,
				Err:        fmt.Errorf("%s row %d: %s", collection, i, strings.Join(msgs, ", ")),
			}
		}
	}
	return nil
}
