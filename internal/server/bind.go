package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/shpitdev/dependents-outreach/internal/contact"
)

// BadRequestError is a client input failure; its message is safe to return.
type BadRequestError struct {
	Msg string
}

func (e *BadRequestError) Error() string { return e.Msg }

func badRequestf(format string, args ...any) error {
	return &BadRequestError{Msg: fmt.Sprintf(format, args...)}
}

type validatorSvc struct {
	validator  *validator.Validate
	translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *validatorSvc
)

// validation returns the validator singleton with english translations,
// json tag names in messages and the ownerrepo tag.
func validation() *validatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// prefer json tag names in messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		_ = v.RegisterValidation("ownerrepo", func(fl validator.FieldLevel) bool {
			_, _, err := contact.ParseRepository(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterTranslation("ownerrepo", trans,
			func(ut ut.Translator) error {
				return ut.Add("ownerrepo", "Invalid {0} format. Use 'owner/repo'.", true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, _ := ut.T("ownerrepo", fe.Field())
				return msg
			},
		)
		_ = v.RegisterTranslation("required", trans,
			func(ut ut.Translator) error {
				return ut.Add("required", "{0} not provided", true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, _ := ut.T("required", fe.Field())
				return msg
			},
		)

		vSvc = &validatorSvc{validator: v, translator: trans}
	})
	return vSvc
}

const maxBodyBytes = 1 << 20

// parseJSON decodes one JSON object into T and validates it. Unknown fields
// are ignored.
func parseJSON[T any](r *http.Request) (T, error) {
	var zero T
	defer func() {
		_ = r.Body.Close()
	}()

	buf := make([]byte, 1)
	n, _ := r.Body.Read(buf)
	if n == 0 {
		return zero, badRequestf("empty body")
	}
	reader := io.LimitReader(io.MultiReader(bytes.NewReader(buf[:n]), r.Body), maxBodyBytes)

	dec := json.NewDecoder(reader)
	var dst T
	if err := dec.Decode(&dst); err != nil {
		return zero, badRequestf("invalid JSON: %v", err)
	}
	if dec.More() {
		return zero, badRequestf("unexpected trailing data")
	}

	if err := validation().validator.Struct(dst); err != nil {
		var inv *validator.InvalidValidationError
		if errors.As(err, &inv) {
			return zero, fmt.Errorf("validator: %w", err)
		}
		return zero, &BadRequestError{Msg: validationMessage(err)}
	}
	return dst, nil
}

// validationMessage returns the first translated message
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			msg := fe.Translate(validation().translator)
			if msg == "" {
				break
			}
			return strings.ToUpper(msg[:1]) + msg[1:]
		}
	}
	return err.Error()
}
