package validator

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Rule pairs a check with the error reported when it fails.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// WithMessage replaces the rule's message and drops its translation key so
// the fixed message survives [ValidationErrors.Translate].
func (r Rule) WithMessage(msg string) Rule {
	r.Error.Message = msg
	r.Error.TranslationKey = ""
	return r
}

// Apply evaluates rules in order and returns ValidationErrors for the failing ones.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, r := range rules {
		if r.Check != nil && !r.Check() {
			errs = append(errs, r.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Number covers the numeric kinds rules accept.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func newError(field, msg, key string, values map[string]any) ValidationError {
	if values == nil {
		values = map[string]any{}
	}
	values["field"] = field
	return ValidationError{Field: field, Message: msg, TranslationKey: key, TranslationValues: values}
}

func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: newError(field, "is required", "validation.required", nil),
	}
}

func RequiredNum[T Number](field string, value T) Rule {
	return Rule{
		Check: func() bool { return value != 0 },
		Error: newError(field, "is required", "validation.required", nil),
	}
}

func MinLenString(field, value string, minLen int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= minLen },
		Error: newError(field, fmt.Sprintf("must be at least %d characters long", minLen),
			"validation.min_length", map[string]any{"min": minLen}),
	}
}

func MaxLenString(field, value string, maxLen int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= maxLen },
		Error: newError(field, fmt.Sprintf("must not exceed %d characters", maxLen),
			"validation.max_length", map[string]any{"max": maxLen}),
	}
}

func LenString(field, value string, length int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) == length },
		Error: newError(field, fmt.Sprintf("must be exactly %d characters long", length),
			"validation.exact_length", map[string]any{"length": length}),
	}
}

func MinNum[T Number](field string, value, minVal T) Rule {
	return Rule{
		Check: func() bool { return value >= minVal },
		Error: newError(field, fmt.Sprintf("must be at least %v", minVal),
			"validation.min", map[string]any{"min": minVal}),
	}
}

func MaxNum[T Number](field string, value, maxVal T) Rule {
	return Rule{
		Check: func() bool { return value <= maxVal },
		Error: newError(field, fmt.Sprintf("must not exceed %v", maxVal),
			"validation.max", map[string]any{"max": maxVal}),
	}
}

// RangeNum checks minVal <= value <= maxVal.
func RangeNum[T Number](field string, value, minVal, maxVal T) Rule {
	return Rule{
		Check: func() bool { return value >= minVal && value <= maxVal },
		Error: newError(field, fmt.Sprintf("must be between %v and %v", minVal, maxVal),
			"validation.range", map[string]any{"min": minVal, "max": maxVal}),
	}
}

func OneOf[T comparable](field string, value T, allowed ...T) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(allowed, value) },
		Error: newError(field, "has an unsupported value", "validation.one_of", map[string]any{"allowed": allowed}),
	}
}

// Email checks that value is a bare, deliverable-looking mailbox address.
func Email(field, value string) Rule {
	return Rule{
		Check: func() bool { return IsEmail(value) },
		Error: newError(field, "must be a valid email address", "validation.email", nil),
	}
}

// Custom wraps an arbitrary check.
func Custom(field string, check func() bool, message string) Rule {
	return Rule{
		Check: check,
		Error: ValidationError{Field: field, Message: message},
	}
}
