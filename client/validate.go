package client

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("client: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("arg"), ",", 2)[0]
		if name == "" {
			return fld.Name
		}

		return name
	})
}

// Validate checks v against its `validate` struct tags. Failures are
// returned as [InputError], which matches [ErrInvalidInput].
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		var fields InputError
		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: verror.Field(),
				Err:   customErrForTag(verror.Tag(), verror),
			})
		}
		return fields
	}

	return nil
}

// FieldError describes a single invalid argument.
type FieldError struct {
	Field string
	Err   string
}

// InputError collects the arguments that failed validation.
type InputError []FieldError

func (fe InputError) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

func (fe InputError) Unwrap() error {
	return ErrInvalidInput
}

// Fields returns the failed arguments keyed by name.
func (fe InputError) Fields() map[string]string {
	m := make(map[string]string, len(fe))
	for _, fld := range fe {
		m[fld.Field] = fld.Err
	}
	return m
}

func customErrForTag(tag string, verror validator.FieldError) string {
	switch tag {
	case "required":
		return "must not be empty"
	default:
		return verror.Translate(translator)
	}
}

// itemArgs are the arguments shared by every item-addressed operation.
type itemArgs struct {
	Repo string `arg:"repo" validate:"required"`
	Path string `arg:"path" validate:"required"`
}

type repoArgs struct {
	Repo string `arg:"repo" validate:"required"`
}
