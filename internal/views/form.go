package views

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

// ErrInvalidForm is returned by a submit whose fields fail validation. No
// request is made in that case.
var ErrInvalidForm = errors.New("views: form is invalid")

// FieldError is one failed validation rule.
type FieldError struct {
	Kind  string
	Limit int
	Text  string
}

// Message is the text shown under the field.
func (e FieldError) Message() string {
	switch e.Kind {
	case "required":
		return "This field is required"
	case "email":
		return "Please enter a valid email address"
	case "minlength":
		return fmt.Sprintf("Minimum length is %d characters", e.Limit)
	case "maxlength":
		return fmt.Sprintf("Maximum length is %d characters", e.Limit)
	case "pattern":
		return "Please enter a valid phone number"
	default:
		return e.Text
	}
}

// Rule validates a field value and returns nil when it passes.
type Rule func(value string) *FieldError

// Required rejects blank values.
func Required() Rule {
	return func(v string) *FieldError {
		if strings.TrimSpace(v) == "" {
			return &FieldError{Kind: "required"}
		}
		return nil
	}
}

// MinLength rejects non-empty values shorter than n characters.
func MinLength(n int) Rule {
	return func(v string) *FieldError {
		if v != "" && utf8.RuneCountInString(v) < n {
			return &FieldError{Kind: "minlength", Limit: n}
		}
		return nil
	}
}

// MaxLength rejects values longer than n characters.
func MaxLength(n int) Rule {
	return func(v string) *FieldError {
		if utf8.RuneCountInString(v) > n {
			return &FieldError{Kind: "maxlength", Limit: n}
		}
		return nil
	}
}

// Email rejects non-empty values that are not email addresses.
func Email(valid func(string) bool) Rule {
	return func(v string) *FieldError {
		if v != "" && !valid(v) {
			return &FieldError{Kind: "email"}
		}
		return nil
	}
}

// Pattern rejects non-empty values that do not match re.
func Pattern(re *regexp.Regexp) Rule {
	return func(v string) *FieldError {
		if v != "" && !re.MatchString(v) {
			return &FieldError{Kind: "pattern"}
		}
		return nil
	}
}

// Check wraps an arbitrary predicate with a custom message.
func Check(kind string, ok func(string) bool, text string) Rule {
	return func(v string) *FieldError {
		if v != "" && !ok(v) {
			return &FieldError{Kind: kind, Text: text}
		}
		return nil
	}
}

// errorPrecedence orders which failure is reported when several apply.
var errorPrecedence = []string{"required", "email", "minlength", "maxlength", "pattern"}

type field struct {
	value   string
	touched bool
	dirty   bool
	rules   []Rule
}

// Form is a set of named fields with validation rules.
type Form struct {
	mu     sync.Mutex
	order  []string
	fields map[string]*field
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{fields: make(map[string]*field)}
}

// Add declares a field. Adding an existing name replaces its rules.
func (f *Form) Add(name string, rules ...Rule) *Form {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fl, ok := f.fields[name]; ok {
		fl.rules = rules
		return f
	}
	f.fields[name] = &field{rules: rules}
	f.order = append(f.order, name)
	return f
}

// Set changes a value as the user would, marking the field dirty.
func (f *Form) Set(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fl, ok := f.fields[name]; ok {
		fl.value = value
		fl.dirty = true
	}
}

// Patch changes a value programmatically without marking it dirty.
func (f *Form) Patch(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fl, ok := f.fields[name]; ok {
		fl.value = value
	}
}

// Value returns the current value of name.
func (f *Form) Value(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fl, ok := f.fields[name]; ok {
		return fl.value
	}
	return ""
}

// Values returns a copy of every field value.
func (f *Form) Values() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.fields))
	for name, fl := range f.fields {
		out[name] = fl.value
	}
	return out
}

// Touched reports whether the field has been marked touched.
func (f *Form) Touched(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.fields[name]
	return ok && fl.touched
}

// MarkAllTouched marks every field touched so errors become visible.
func (f *Form) MarkAllTouched() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fl := range f.fields {
		fl.touched = true
	}
}

// Errors returns every failing rule for name.
func (f *Form) Errors(name string) []FieldError {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.fields[name]
	if !ok {
		return nil
	}
	return validate(fl)
}

func validate(fl *field) []FieldError {
	var errs []FieldError
	for _, rule := range fl.rules {
		if e := rule(fl.value); e != nil {
			errs = append(errs, *e)
		}
	}
	return errs
}

// ErrorText is the single message shown for name, or "" when it is valid.
func (f *Form) ErrorText(name string) string {
	errs := f.Errors(name)
	if len(errs) == 0 {
		return ""
	}
	for _, kind := range errorPrecedence {
		for _, e := range errs {
			if e.Kind == kind {
				return e.Message()
			}
		}
	}
	return errs[0].Message()
}

// Invalid reports whether name fails validation and the user has interacted
// with it.
func (f *Form) Invalid(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.fields[name]
	if !ok {
		return false
	}
	return (fl.touched || fl.dirty) && len(validate(fl)) > 0
}

// Valid reports whether every field passes.
func (f *Form) Valid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range f.order {
		if len(validate(f.fields[name])) > 0 {
			return false
		}
	}
	return true
}

// Fields lists field names in declaration order.
func (f *Form) Fields() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}
