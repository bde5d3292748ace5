package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmehdipour/contact-desk/internal/config"
	"github.com/jmehdipour/contact-desk/internal/model"
)

// Provider delivers a single email. Ready and Acquire expose the provider's
// circuit breaker to the dispatcher.
type Provider interface {
	Name() string
	Ready() bool
	Acquire() bool
	Send(ctx context.Context, e model.Email) error
}

// HTTPProvider posts emails as JSON to a transactional mail API.
type HTTPProvider struct {
	name     string
	endpoint string
	apiKey   string
	client   *http.Client
	br       *MicroBreaker
}

func NewHTTPProvider(c config.HTTPMailConfig) *HTTPProvider {
	timeoutMs := c.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}
	openForMs := c.Breaker.OpenForMs
	if openForMs <= 0 {
		openForMs = 15000
	}
	name := c.Name
	if name == "" {
		name = "mail-api"
	}

	return &HTTPProvider{
		name:     name,
		endpoint: strings.TrimRight(c.BaseURL, "/") + c.SendPath,
		apiKey:   c.APIKey,
		client:   &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:       NewMicroBreaker(c.Breaker.FailThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (p *HTTPProvider) Name() string  { return p.name }
func (p *HTTPProvider) Ready() bool   { return p.br.Ready() }
func (p *HTTPProvider) Acquire() bool { return p.br.TryAcquire() }

func (p *HTTPProvider) Send(ctx context.Context, e model.Email) error {
	return p.br.guard(func() error { return p.post(ctx, e) })
}

func (p *HTTPProvider) post(ctx context.Context, e model.Email) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("provider=%s status=%d", p.name, res.StatusCode)
	}
	return nil
}
