package validation

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/andrewpaige1/studyplan-api/models"
	"github.com/andrewpaige1/studyplan-api/utils"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags
	notBlankTag = "notblank"
	weekdayTag  = "weekday"
	taskTypeTag = "tasktype"
	dateTag     = "date"
	passwordTag = "bcryptlen"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(notBlankTag, notBlank)
	_ = Validate.RegisterValidation(weekdayTag, isWeekday)
	_ = Validate.RegisterValidation(taskTypeTag, isTaskType)
	_ = Validate.RegisterValidation(dateTag, isDate)
	_ = Validate.RegisterValidation(passwordTag, fitsBcrypt)

	registerCustomTranslations(notBlankTag, weekdayTag, taskTypeTag, dateTag, passwordTag)
}

// registerCustomTranslations gives custom tags an English message. The
// registration func is a noop because the default translations are already
// registered on Translator.
func registerCustomTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = Validate.RegisterTranslation(tag, Translator, registerFn, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case weekdayTag:
		return "must be one of " + strings.Join(models.Weekdays, ", ")
	case taskTypeTag:
		return "must be one of " + strings.Join(models.TaskTypes, ", ")
	case dateTag:
		return "must be a date in YYYY-MM-DD format"
	case passwordTag:
		return "must be at most 72 bytes long"
	default:
		return ""
	}
}

func notBlank(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func isWeekday(fl validator.FieldLevel) bool {
	day := fl.Field().String()
	for _, d := range models.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

func isTaskType(fl validator.FieldLevel) bool {
	return models.IsTaskType(fl.Field().String())
}

func isDate(fl validator.FieldLevel) bool {
	_, err := utils.ParseDate(fl.Field().String(), time.UTC)
	return err == nil
}

// fitsBcrypt checks the byte length; max= counts runes.
func fitsBcrypt(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxPasswordBytes
}

// Error is a failed validation, keyed by JSON field name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func NewFieldError(field, msg string) *Error {
	return &Error{Fields: map[string]string{field: msg}}
}

// Struct validates v and returns an *Error describing every failing field.
func Struct(v interface{}) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = fe.Translate(Translator)
	}
	return &Error{Fields: fields}
}

// fieldName drops the top-level struct name from the namespace, so nested
// and slice fields read as "selectedDays[1]".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
