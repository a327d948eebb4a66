package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	errInvalidInput = errors.New("invalid input")

	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// Validator validates structs and translates their field errors to english.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator instantiates the validator for use.
func NewValidator() *Validator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	v := &Validator{
		validate:   validator.New(),
		translator: translator,
	}
	_ = en_translations.RegisterDefaultTranslations(v.validate, v.translator)

	// Use JSON tag names for errors instead of Go struct names.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation(notBlankTag, notBlankValidation, notBlankText)
	v.RegisterTranslation(requiredTag, requiredText, true)
	v.RegisterTranslation(requiredWithTag, requiredText, true)
	return v
}

// Struct validates s and returns a *ValidationError carrying one translated FieldError per failed field.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, "validating struct")
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fe.Translate(v.translator)})
	}
	return NewValidationError(errInvalidInput, flds...)
}

// Translate translates the field errors of a validator.ValidationErrors.
func (v *Validator) Translate(vErrs validator.ValidationErrors) map[string]string {
	fldErrs := make(map[string]string, len(vErrs))
	for _, fe := range vErrs {
		fldErrs[fe.Field()] = fe.Translate(v.translator)
	}
	return fldErrs
}

// RegisterValidation registers a custom validation tag along with its error text.
func (v *Validator) RegisterValidation(tag string, fn validator.Func, text string) {
	_ = v.validate.RegisterValidation(tag, fn)
	v.RegisterTranslation(tag, text)
}

func (v *Validator) RegisterStructValidation(fn validator.StructLevelFunc, types ...interface{}) {
	v.validate.RegisterStructValidation(fn, types...)
}

// RegisterTranslation registers a custom translation for the specified validation tag.
func (v *Validator) RegisterTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// notBlankValidation rejects strings made only of whitespace.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
