package views

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormErrorPrecedence(t *testing.T) {
	f := NewForm().Add("name", Required(), MinLength(2), MaxLength(4))

	assert.Equal(t, "This field is required", f.ErrorText("name"))
	f.Set("name", "a")
	assert.Equal(t, "Minimum length is 2 characters", f.ErrorText("name"))
	f.Set("name", "abcde")
	assert.Equal(t, "Maximum length is 4 characters", f.ErrorText("name"))
	f.Set("name", "abc")
	assert.Empty(t, f.ErrorText("name"))
	assert.True(t, f.Valid())
}

func TestFormTouchedAndDirty(t *testing.T) {
	f := NewForm().Add("a", Required()).Add("b", Pattern(regexp.MustCompile(`^\d+$`)))

	assert.False(t, f.Invalid("a"), "untouched fields do not show errors")
	assert.False(t, f.Valid())

	f.Patch("b", "x")
	assert.False(t, f.Invalid("b"), "programmatic patch is not dirty")
	f.Set("b", "y")
	assert.True(t, f.Invalid("b"))

	f.MarkAllTouched()
	assert.True(t, f.Invalid("a"))
	assert.Equal(t, []string{"a", "b"}, f.Fields())
	assert.Equal(t, map[string]string{"a": "", "b": "y"}, f.Values())
}

func TestFormUnknownField(t *testing.T) {
	f := NewForm()
	f.Set("missing", "v")
	assert.Empty(t, f.Value("missing"))
	assert.False(t, f.Invalid("missing"))
	assert.Nil(t, f.Errors("missing"))
}

func TestLoginRouteHelpers(t *testing.T) {
	assert.Equal(t, RouteLogin, LoginRouteReturningTo(""))
	route := LoginRouteReturningTo("/appointment-details/A B")
	assert.Equal(t, "/appointment-details/A B", ReturnURLFrom(route))
	assert.Equal(t, "/appointment-details/A%20B", AppointmentDetailsRoute("A B"))
	assert.Equal(t, "/confirmation/REF-1", ConfirmationRoute("REF-1"))
}
