package validate

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

func init() {
	// Report fields by their JSON name so details match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
}

// Errors lists every rule a struct failed.
type Errors struct {
	Fields []FieldError
}

func (e *Errors) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, "field '"+f.Field+"' failed '"+f.Tag+"'")
	}
	return strings.Join(msgs, "; ")
}

// OnlyTag reports whether every failure is for the given tag.
func (e *Errors) OnlyTag(tag string) bool {
	if len(e.Fields) == 0 {
		return false
	}
	for _, f := range e.Fields {
		if f.Tag != tag {
			return false
		}
	}
	return true
}

// Struct validates the given struct using its validate tags.
// Returns *Errors when a rule fails.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		out := &Errors{Fields: make([]FieldError, 0, len(ve))}
		for _, fe := range ve {
			out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Tag: fe.Tag()})
		}
		return out
	}
	return nil
}
