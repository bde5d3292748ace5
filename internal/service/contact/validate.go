package contact

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmehdipour/contact-desk/internal/model"
)

const MaxNoteLength = 1000

var (
	// any Unicode space or BOM ends a part, not only ASCII whitespace
	emailPattern = regexp.MustCompile(`^[^\s\p{Z}\x{FEFF}@]+@[^\s\p{Z}\x{FEFF}@]+\.[^\s\p{Z}\x{FEFF}@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)

	validate = newValidator()
)

// Submission is a raw intake request as received from a client.
type Submission struct {
	Name      string
	Email     string
	Phone     string
	Subject   string
	Message   string
	Source    string
	IPAddress string
	UserAgent string
}

// Fields is a submission that passed every rule, trimmed and normalized.
type Fields struct {
	Name      string
	Email     string
	Phone     string
	Subject   string
	Message   string
	Source    model.Source
	IPAddress string
	UserAgent string
}

type submissionRules struct {
	Name    string `json:"name"    validate:"required,min=2,max=100"`
	Email   string `json:"email"   validate:"required,contact_email"`
	Phone   string `json:"phone"   validate:"omitempty,intl_phone"`
	Subject string `json:"subject" validate:"required,min=5,max=200"`
	Message string `json:"message" validate:"required,min=10,max=2000"`
	Source  string `json:"source"  validate:"omitempty,oneof=website mobile api"`
}

type noteRules struct {
	Notes string `json:"notes" validate:"max=1000"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("intl_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateSubmission trims and normalizes s and checks every field rule. On
// failure the returned *ValidationError lists each violated field.
func ValidateSubmission(s Submission) (Fields, error) {
	f := Fields{
		Name:      strings.TrimSpace(s.Name),
		Email:     strings.ToLower(strings.TrimSpace(s.Email)),
		Phone:     strings.TrimSpace(s.Phone),
		Subject:   strings.TrimSpace(s.Subject),
		Message:   strings.TrimSpace(s.Message),
		Source:    model.Source(strings.ToLower(strings.TrimSpace(s.Source))),
		IPAddress: strings.TrimSpace(s.IPAddress),
		UserAgent: strings.TrimSpace(s.UserAgent),
	}

	err := validate.Struct(submissionRules{
		Name:    f.Name,
		Email:   f.Email,
		Phone:   f.Phone,
		Subject: f.Subject,
		Message: f.Message,
		Source:  f.Source.String(),
	})
	if err != nil {
		return Fields{}, toValidationError(err)
	}

	if f.Source == "" {
		f.Source = model.SourceWebsite
	}
	return f, nil
}

// ValidateNote checks an operator note.
func ValidateNote(note string) error {
	if err := validate.Struct(noteRules{Notes: note}); err != nil {
		return toValidationError(err)
	}
	return nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Violations: make([]FieldViolation, 0, len(verrs))}
	for _, fe := range verrs {
		out.Violations = append(out.Violations, FieldViolation{
			Field:  fe.Field(),
			Reason: reason(fe),
		})
	}
	return out
}

func reason(fe validator.FieldError) string {
	label := strings.ToUpper(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return label + " must be at least " + fe.Param() + " characters long"
	case "max":
		return label + " cannot exceed " + fe.Param() + " characters"
	case "contact_email":
		return "Please provide a valid email address"
	case "intl_phone":
		return "Please provide a valid phone number"
	case "oneof":
		return label + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return label + " is invalid"
	}
}
