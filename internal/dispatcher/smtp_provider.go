package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/contact-desk/internal/config"
	"github.com/jmehdipour/contact-desk/internal/model"
	"gopkg.in/gomail.v2"
)

// mailSender is satisfied by *gomail.Dialer.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPProvider sends emails over SMTP with gomail.
type SMTPProvider struct {
	name   string
	sender mailSender
	br     *MicroBreaker
}

func NewSMTPProvider(c config.SMTPMailConfig) *SMTPProvider {
	openForMs := c.Breaker.OpenForMs
	if openForMs <= 0 {
		openForMs = 15000
	}
	name := c.Name
	if name == "" {
		name = "smtp"
	}
	port := c.Port
	if port == 0 {
		port = 587
	}

	return &SMTPProvider{
		name:   name,
		sender: gomail.NewDialer(c.Host, port, c.Username, c.Password),
		br:     NewMicroBreaker(c.Breaker.FailThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (p *SMTPProvider) Name() string  { return p.name }
func (p *SMTPProvider) Ready() bool   { return p.br.Ready() }
func (p *SMTPProvider) Acquire() bool { return p.br.TryAcquire() }

// Send does not honour cancellation mid-dial; gomail has no context support.
func (p *SMTPProvider) Send(ctx context.Context, e model.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.br.guard(func() error {
		if err := p.sender.DialAndSend(newMessage(e)); err != nil {
			return fmt.Errorf("provider=%s: %w", p.name, err)
		}
		return nil
	})
}

func newMessage(e model.Email) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", e.From)
	msg.SetHeader("To", e.To)
	if e.ReplyTo != "" {
		msg.SetHeader("Reply-To", e.ReplyTo)
	}
	msg.SetHeader("Subject", e.Subject)
	msg.SetBody("text/html", e.HTML)
	return msg
}
