package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/ballot/internal/client/client"
	"github.com/dmitrijs2005/ballot/internal/client/models"
	"github.com/go-playground/validator/v10"
)

// FieldError is one rejected form field.
type FieldError struct {
	Field   string
	Message string
}

// Error lists every rejected field of a form.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *Error) Unwrap() error { return client.ErrValidation }

// Field returns the message for the named field, or "" when it passed.
func (e *Error) Field(name string) string {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

func fieldError(field, msg string) *Error {
	return &Error{Fields: []FieldError{{Field: field, Message: msg}}}
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	tags := map[string]validator.Func{
		"isodate": func(fl validator.FieldLevel) bool {
			_, ok := parseISODate(fl.Field().String())
			return ok
		},
		"aadhaar": func(fl validator.FieldLevel) bool {
			return isDigits(strings.ReplaceAll(fl.Field().String(), " ", ""), AadhaarDigits)
		},
		"phone": func(fl validator.FieldLevel) bool {
			return isDigits(fl.Field().String(), PhoneDigits)
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %q validation: %v", tag, err))
		}
	}

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		form := sl.Current().Interface().(models.PollForm)
		start, okStart := parseISODate(form.StartDate)
		end, okEnd := parseISODate(form.EndDate)
		if okStart && okEnd && end.Before(start) {
			sl.ReportError(form.EndDate, "end_date", "EndDate", "notbeforestart", "")
		}
	}, models.PollForm{})

	return v
}

func parseISODate(s string) (time.Time, bool) {
	if !isoDate.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Struct validates a form struct and converts validator failures into *Error.
func Struct(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		out.Fields = append(out.Fields, FieldError{Field: field, Message: message(field, fe)})
	}
	return out
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entry", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "isodate":
		return fmt.Sprintf("%s must be in YYYY-MM-DD format", field)
	case "notbeforestart":
		return "end_date must not be earlier than start_date"
	case "aadhaar":
		return fmt.Sprintf("%s must be %d digits", field, AadhaarDigits)
	case "phone":
		return fmt.Sprintf("%s must be %d digits", field, PhoneDigits)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Credentials formats the voter login input and checks it. The returned
// values are what the backend expects: grouped Aadhaar and bare phone digits.
func Credentials(aadhaar, phone string) (string, string, error) {
	formatted := FormatAadhaar(aadhaar)
	normalized := NormalizePhone(phone)

	verr := &Error{}
	if len(AadhaarDigitsOf(aadhaar)) != AadhaarDigits {
		verr.Fields = append(verr.Fields, FieldError{Field: "aadhar", Message: fmt.Sprintf("aadhar must be %d digits", AadhaarDigits)})
	}
	if len(normalized) != PhoneDigits {
		verr.Fields = append(verr.Fields, FieldError{Field: "phone_no", Message: fmt.Sprintf("phone_no must be %d digits", PhoneDigits)})
	}
	if len(verr.Fields) > 0 {
		return "", "", verr
	}
	return formatted, normalized, nil
}

// OTP checks that code is exactly six digits.
func OTP(code string) (string, error) {
	code = strings.TrimSpace(code)
	if !isDigits(code, OTPDigits) {
		return "", fieldError("otp", fmt.Sprintf("otp must be %d digits", OTPDigits))
	}
	return code, nil
}

// PollForm checks the conduct-poll form: name and description of at least
// two characters, ISO dates with start <= end, and at least one state group
// each listing at least one party.
func PollForm(form models.PollForm) error {
	return Struct(form)
}

// VoterRegistration formats and checks the admin add-voter form.
func VoterRegistration(reg models.VoterRegistration) (models.VoterRegistration, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Aadhar = FormatAadhaar(reg.Aadhar)
	reg.PhoneNo = NormalizePhone(reg.PhoneNo)
	if err := Struct(reg); err != nil {
		return reg, err
	}
	return reg, nil
}

// PartyRegistration checks the admin create-party form.
func PartyRegistration(reg models.PartyRegistration) (models.PartyRegistration, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Abbreviation = strings.TrimSpace(reg.Abbreviation)
	if err := Struct(reg); err != nil {
		return reg, err
	}
	return reg, nil
}

// Identifier rejects an empty selection such as a missing party choice.
func Identifier(field string, id models.ID) error {
	if id <= 0 {
		return fieldError(field, field+" is required")
	}
	return nil
}
