package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Request is what a customer submits from the booking form.
type Request struct {
	ScheduledAt        time.Time `validate:"required"`
	CustomerName       string    `validate:"required,max=200"`
	CustomerEmail      string    `validate:"required,email,max=254"`
	CustomerBackground string    `validate:"required"`
	InterviewFocus     string    `validate:"required"`
	TargetCompanies    string
	AdditionalInfo     string
	DurationMinutes    int    `validate:"min=15,max=240"`
	CalBookingUid      string `validate:"max=200"`
}

func (r *Request) normalize() {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	r.CustomerBackground = strings.TrimSpace(r.CustomerBackground)
	r.InterviewFocus = strings.TrimSpace(r.InterviewFocus)
	r.TargetCompanies = strings.TrimSpace(r.TargetCompanies)
	r.AdditionalInfo = strings.TrimSpace(r.AdditionalInfo)
	r.CalBookingUid = strings.TrimSpace(r.CalBookingUid)
	if r.DurationMinutes == 0 {
		r.DurationMinutes = DefaultDurationMinutes
	}
}

// ValidationError lists the problems found in a Request, in form order.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid booking request: " + strings.Join(e.Messages, "; ")
}

var fieldLabels = map[string]string{
	"ScheduledAt":        "Date/time",
	"CustomerName":       "Name",
	"CustomerEmail":      "Email",
	"CustomerBackground": "Background",
	"InterviewFocus":     "Interview focus",
	"DurationMinutes":    "Duration",
	"CalBookingUid":      "Booking reference",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (r Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	result := &ValidationError{}
	for _, fe := range fieldErrors {
		result.Messages = append(result.Messages, message(fe))
	}
	return result
}

func message(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", label)
	case "email":
		return "Enter a valid email address."
	case "max":
		if fe.Kind().String() == "int" {
			return fmt.Sprintf("%s must be at most %s minutes.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s minutes.", label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid.", label)
	}
}
