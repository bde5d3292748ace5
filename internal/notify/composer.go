package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"
	_ "time/tzdata"

	"github.com/jmehdipour/contact-desk/internal/config"
	"github.com/jmehdipour/contact-desk/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const submittedLayout = "02 Jan 2006, 03:04 PM MST"

// Composer renders the submitter confirmation and the operator alert for a
// contact.
type Composer struct {
	from         string
	operator     string
	brand        string
	supportPhone string
	supportEmail string
	website      string
	loc          *time.Location
}

func NewComposer(c config.NotifierConfig) (*Composer, error) {
	loc := time.UTC
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, fmt.Errorf("notifier timezone: %w", err)
		}
		loc = l
	}
	if c.Operator == "" {
		return nil, fmt.Errorf("notifier operator address is empty")
	}
	brand := c.Brand
	if brand == "" {
		brand = "Contact Desk"
	}
	return &Composer{
		from:         c.From,
		operator:     c.Operator,
		brand:        brand,
		supportPhone: c.SupportPhone,
		supportEmail: c.SupportEmail,
		website:      c.Website,
		loc:          loc,
	}, nil
}

type view struct {
	Brand        string
	SupportPhone string
	SupportEmail string
	Website      string
	Submitted    string
	ReplyLink    template.URL
	Contact      model.Contact
}

// Compose returns the confirmation (to the submitter) followed by the alert
// (to the operator).
func (c *Composer) Compose(ct model.Contact) ([]model.Email, error) {
	v := view{
		Brand:        c.brand,
		SupportPhone: c.supportPhone,
		SupportEmail: c.supportEmail,
		Website:      c.website,
		Submitted:    ct.CreatedAt.In(c.loc).Format(submittedLayout),
		ReplyLink:    template.URL(replyLink(ct)),
		Contact:      ct,
	}

	confirmation, err := render("confirmation.html", v)
	if err != nil {
		return nil, err
	}
	alert, err := render("operator_alert.html", v)
	if err != nil {
		return nil, err
	}

	return []model.Email{
		{
			From:    c.from,
			To:      ct.Email,
			Subject: "Thank you for contacting " + c.brand + "!",
			HTML:    confirmation,
		},
		{
			From:    c.from,
			To:      c.operator,
			ReplyTo: ct.Email,
			Subject: "New Contact Form Submission - " + ct.Subject,
			HTML:    alert,
		},
	}, nil
}

func render(name string, v view) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func replyLink(ct model.Contact) string {
	q := url.Values{"subject": {"Re: " + ct.Subject}}
	return (&url.URL{Scheme: "mailto", Opaque: ct.Email, RawQuery: q.Encode()}).String()
}
