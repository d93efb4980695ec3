package mockapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/branch-booking/internal/booking"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return booking.ValidPhone(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

type bookingInput struct {
	CustomerName    string `json:"customerName" validate:"required,min=2,max=100"`
	CustomerEmail   string `json:"customerEmail" validate:"required,email"`
	CustomerPhone   string `json:"customerPhone" validate:"required,phone"`
	AppointmentDate string `json:"appointmentDate" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"startTime" validate:"required,datetime=15:04:05"`
}

type registrationInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
}

var fieldLabels = map[string]string{
	"customerName":    "Name",
	"customerEmail":   "Email",
	"customerPhone":   "Phone number",
	"appointmentDate": "Date",
	"startTime":       "Start time",
	"username":        "Username",
	"email":           "Email",
	"password":        "Password",
	"date":            "Date",
}

// checkStruct runs the struct tags of in and records each failure in fe.
func checkStruct(in any, fe fieldErrors) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	for _, e := range ve {
		fe.add(e.Field(), fieldMessage(e))
	}
	return nil
}

// checkDate validates a single YYYY-MM-DD query value.
func checkDate(field, value string) error {
	if err := validate.Var(value, "required,datetime="+booking.DateLayout); err != nil {
		return &ValidationError{Fields: map[string]string{field: layoutMessage(field, booking.DateLayout)}}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Please enter a valid email address"
	case "phone":
		return "Please enter a valid phone number"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "datetime":
		return layoutMessage(fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

func layoutMessage(field, layout string) string {
	label := fieldLabels[field]
	if label == "" {
		label = field
	}
	switch layout {
	case booking.DateLayout:
		return label + " must be in YYYY-MM-DD format"
	case booking.TimeLayout:
		return label + " must be in HH:MM:SS format"
	default:
		return fmt.Sprintf("%s must match %s", label, layout)
	}
}
