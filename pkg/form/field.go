package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-crudform/pkg/store"
)

// Kind selects how a field coerces submitted text.
type Kind string

const (
	KindString   Kind = "string"
	KindText     Kind = "text"
	KindInteger  Kind = "integer"
	KindNumber   Kind = "number"
	KindBoolean  Kind = "boolean"
	KindDateTime Kind = "datetime"
)

// DateTimeLayout is the wire format of datetime fields.
const DateTimeLayout = "2006-01-02 15:04:05"

// Messages produced when submitted text cannot be coerced.
const (
	MsgRequired        = "This field is required."
	MsgInvalidInteger  = "Not a valid integer value."
	MsgInvalidNumber   = "Not a valid float value."
	MsgInvalidDateTime = "Not a valid datetime value."
)

// Field declares one editable attribute of a model.
type Field struct {
	Name  string
	Label string
	Kind  Kind
	// Rules holds go-playground/validator tags, e.g. "required,max=200".
	Rules       string
	Default     any
	Description string
}

// DisplayLabel returns Label or a title cased version of Name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return Humanize(f.Name)
}

func (f Field) kind() Kind {
	if f.Kind == "" {
		return KindString
	}
	return f.Kind
}

// ResolvedKind returns Kind, defaulting to KindString.
func (f Field) ResolvedKind() Kind { return f.kind() }

// Required reports whether the rules include "required".
func (f Field) Required() bool {
	for _, tag := range splitRules(f.Rules) {
		if tag == "required" {
			return true
		}
	}
	return false
}

// Choices returns the values of a oneof rule, if any.
func (f Field) Choices() []string {
	for _, tag := range splitRules(f.Rules) {
		if rest, ok := strings.CutPrefix(tag, "oneof="); ok {
			return strings.Fields(rest)
		}
	}
	return nil
}

// valueRules strips the tags handled before coercion.
func (f Field) valueRules() string {
	tags := splitRules(f.Rules)
	out := tags[:0]
	for _, tag := range tags {
		if tag == "required" || tag == "omitempty" {
			continue
		}
		out = append(out, tag)
	}
	return strings.Join(out, ",")
}

func splitRules(rules string) []string {
	var out []string
	for _, tag := range strings.Split(rules, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// checkRules fails for tags the validator does not know. The validator panics
// on unknown tags, so the check runs once at declaration time.
func (f Field) checkRules() (err error) {
	rules := f.valueRules()
	if rules == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("form: field %q has invalid rules %q: %v", f.Name, f.Rules, r)
		}
	}()
	_ = fieldValidator().Var(zeroValue(f.kind()), rules)
	return nil
}

func zeroValue(kind Kind) any {
	switch kind {
	case KindInteger:
		return int64(0)
	case KindNumber:
		return float64(0)
	case KindBoolean:
		return false
	case KindDateTime:
		return time.Time{}
	default:
		return ""
	}
}

// coerce converts submitted text into the field's Go value. Empty input maps
// to the kind's empty value.
func coerce(kind Kind, raw string) (any, string) {
	trimmed := strings.TrimSpace(raw)
	switch kind {
	case KindInteger:
		if trimmed == "" {
			return nil, ""
		}
		v, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, MsgInvalidInteger
		}
		return v, ""
	case KindNumber:
		if trimmed == "" {
			return nil, ""
		}
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, MsgInvalidNumber
		}
		return v, ""
	case KindBoolean:
		switch strings.ToLower(trimmed) {
		case "", "false", "0", "off", "n", "no":
			return false, ""
		}
		return true, ""
	case KindDateTime:
		if trimmed == "" {
			return nil, ""
		}
		v, err := time.Parse(DateTimeLayout, trimmed)
		if err != nil {
			return nil, MsgInvalidDateTime
		}
		return v, ""
	default:
		return raw, ""
	}
}

// format renders an attribute value the way the field expects to receive it
// back from a browser.
func format(kind Kind, value any) string {
	if value == nil {
		return ""
	}
	switch kind {
	case KindBoolean:
		if b, ok := value.(bool); ok {
			if b {
				return "y"
			}
			return ""
		}
	case KindDateTime:
		switch v := value.(type) {
		case time.Time:
			return v.Format(DateTimeLayout)
		case string:
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return t.Format(DateTimeLayout)
			}
			return v
		}
	case KindInteger:
		if n, ok := store.ToInt64(value); ok {
			return strconv.FormatInt(n, 10)
		}
	case KindNumber:
		switch v := value.(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return fmt.Sprint(value)
}

// ruleMessages translates validator failures into user facing messages.
func ruleMessages(err error, kind Kind) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Invalid value."}
	}
	numeric := kind == KindInteger || kind == KindNumber
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "max", "lte":
			if numeric {
				out = append(out, fmt.Sprintf("Number must be at most %s.", fe.Param()))
			} else {
				out = append(out, fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param()))
			}
		case "min", "gte":
			if numeric {
				out = append(out, fmt.Sprintf("Number must be at least %s.", fe.Param()))
			} else {
				out = append(out, fmt.Sprintf("Field must be at least %s characters long.", fe.Param()))
			}
		case "len":
			out = append(out, fmt.Sprintf("Field must be exactly %s characters long.", fe.Param()))
		case "email":
			out = append(out, "Invalid email address.")
		case "url", "uri":
			out = append(out, "Invalid URL.")
		case "oneof":
			out = append(out, "Not a valid choice.")
		default:
			out = append(out, "Invalid value.")
		}
	}
	return out
}

// Humanize turns "title_plural" into "Title Plural".
func Humanize(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
