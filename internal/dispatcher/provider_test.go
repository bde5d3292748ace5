package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmehdipour/contact-desk/internal/config"
	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestHTTPProviderPostsJSON(t *testing.T) {
	var (
		got  model.Email
		auth string
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.HTTPMailConfig{
		Name:     "api",
		BaseURL:  srv.URL + "/",
		SendPath: "/v1/send",
		APIKey:   "secret",
	})
	require.NoError(t, p.Send(context.Background(), testEmail))

	require.Equal(t, "/v1/send", path)
	require.Equal(t, "Bearer secret", auth)
	require.Equal(t, testEmail, got)
	require.Equal(t, "api", p.Name())
}

func TestHTTPProviderTripsBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.HTTPMailConfig{
		BaseURL:  srv.URL,
		SendPath: "/send",
		Breaker:  config.BreakerConfig{FailThreshold: 2, OpenForMs: 60000},
	})

	for i := 0; i < 2; i++ {
		require.True(t, p.Acquire())
		err := p.Send(context.Background(), testEmail)
		require.ErrorContains(t, err, "status=502")
	}
	require.False(t, p.Ready())
	require.False(t, p.Acquire())
}

type fakeSender struct {
	msgs []*gomail.Message
	err  error
}

func (s *fakeSender) DialAndSend(m ...*gomail.Message) error {
	s.msgs = append(s.msgs, m...)
	return s.err
}

func TestSMTPProviderBuildsMessage(t *testing.T) {
	fs := &fakeSender{}
	p := NewSMTPProvider(config.SMTPMailConfig{Host: "smtp.test"})
	p.sender = fs

	e := testEmail
	e.ReplyTo = "asha@example.com"
	require.NoError(t, p.Send(context.Background(), e))

	require.Len(t, fs.msgs, 1)
	m := fs.msgs[0]
	require.Equal(t, []string{"rahul@test.com"}, m.GetHeader("To"))
	require.Equal(t, []string{"asha@example.com"}, m.GetHeader("Reply-To"))
	require.Equal(t, []string{"Hi"}, m.GetHeader("Subject"))
	require.Equal(t, "smtp", p.Name())
}

func TestSMTPProviderFailure(t *testing.T) {
	fs := &fakeSender{err: errors.New("connection refused")}
	p := NewSMTPProvider(config.SMTPMailConfig{Name: "relay", Breaker: config.BreakerConfig{FailThreshold: 1}})
	p.sender = fs

	err := p.Send(context.Background(), testEmail)
	require.ErrorContains(t, err, "provider=relay")
	require.False(t, p.Ready())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.Send(ctx, testEmail), context.Canceled)
}
