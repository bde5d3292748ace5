package notify

import (
	"testing"
	"time"

	"github.com/jmehdipour/contact-desk/internal/config"
	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/stretchr/testify/require"
)

func testComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := NewComposer(config.NotifierConfig{
		From:         "Desk <no-reply@desk.test>",
		Operator:     "ops@desk.test",
		Brand:        "PrimeTask Movers",
		SupportPhone: "+91 9000000000",
		Timezone:     "Asia/Kolkata",
	})
	require.NoError(t, err)
	return c
}

func TestComposeRendersBothEmails(t *testing.T) {
	phone := "+919876543210"
	ct := model.Contact{
		ID:        "01HQ0000000000000000000001",
		Name:      "Rahul <b>Sharma</b>",
		Email:     "rahul@test.com",
		Phone:     &phone,
		Subject:   "Moving Services Inquiry",
		Message:   "Mumbai to Pune, urgent.",
		Priority:  model.PriorityUrgent,
		CreatedAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	emails, err := testComposer(t).Compose(ct)
	require.NoError(t, err)
	require.Len(t, emails, 2)

	confirm, alert := emails[0], emails[1]
	require.Equal(t, "rahul@test.com", confirm.To)
	require.Equal(t, "Desk <no-reply@desk.test>", confirm.From)
	require.Equal(t, "Thank you for contacting PrimeTask Movers!", confirm.Subject)
	require.Contains(t, confirm.HTML, "Rahul &lt;b&gt;Sharma&lt;/b&gt;")
	require.NotContains(t, confirm.HTML, "<b>Sharma</b>")
	require.Contains(t, confirm.HTML, "10 Mar 2024, 02:30 PM IST")
	// html/template escapes '+' as &#43;
	require.Contains(t, confirm.HTML, "&#43;919876543210")
	require.Contains(t, confirm.HTML, "call us directly at <strong>&#43;91 9000000000</strong>")

	require.Equal(t, "ops@desk.test", alert.To)
	require.Equal(t, "rahul@test.com", alert.ReplyTo)
	require.Equal(t, "New Contact Form Submission - Moving Services Inquiry", alert.Subject)
	require.Contains(t, alert.HTML, "mailto:rahul@test.com?subject=Re")
	require.Contains(t, alert.HTML, "<strong>Priority:</strong> urgent")
	require.Contains(t, alert.HTML, "<strong>IP Address:</strong> Unknown")
}

func TestComposeOmitsMissingPhone(t *testing.T) {
	emails, err := testComposer(t).Compose(model.Contact{
		Name: "Asha", Email: "asha@example.com", Subject: "Quote", Message: "Need a quote",
	})
	require.NoError(t, err)
	require.NotContains(t, emails[1].HTML, "tel:")
}

func TestNewComposerRejectsBadConfig(t *testing.T) {
	_, err := NewComposer(config.NotifierConfig{Operator: "ops@desk.test", Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = NewComposer(config.NotifierConfig{})
	require.Error(t, err)
}
