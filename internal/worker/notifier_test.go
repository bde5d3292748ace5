package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/contact-desk/internal/config"
	"github.com/jmehdipour/contact-desk/internal/kafka"
	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmehdipour/contact-desk/internal/notify"
	"github.com/stretchr/testify/require"
)

type chanSource struct {
	ch chan kafka.Message

	mu        sync.Mutex
	committed []int64
}

func (s *chanSource) Fetch(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-s.ch:
		return m, nil
	}
}

func (s *chanSource) Commit(_ context.Context, m kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, m.Offset)
	return nil
}

func (s *chanSource) commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.committed)
}

type failingMailer struct {
	mu     sync.Mutex
	failTo string
	sent   []model.Email
	lanes  []model.Lane
}

func (m *failingMailer) Send(_ context.Context, lane model.Lane, e model.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.To == m.failTo {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, e)
	m.lanes = append(m.lanes, lane)
	return nil
}

type markerFunc func(ids []string)

func (f markerFunc) MarkEmailSent(_ context.Context, ids []string) error {
	f(append([]string(nil), ids...))
	return nil
}

func envelopeMessage(t *testing.T, offset int64, c model.Contact) kafka.Message {
	t.Helper()
	b, err := json.Marshal(model.Envelope{ID: c.ID, Lane: model.LanePriority, Contact: c})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func TestNotifierDeliversAndMarks(t *testing.T) {
	composer, err := notify.NewComposer(config.NotifierConfig{From: "desk@test", Operator: "ops@test"})
	require.NoError(t, err)

	src := &chanSource{ch: make(chan kafka.Message, 4)}
	mailer := &failingMailer{failTo: "bounce@test"}

	var (
		mu     sync.Mutex
		marked []string
	)
	marker := markerFunc(func(ids []string) {
		mu.Lock()
		defer mu.Unlock()
		marked = append(marked, ids...)
	})

	w := NewNotifier(src, composer, mailer, marker, nil, model.LanePriority)
	w.Workers = 2
	w.BatchWait = 20 * time.Millisecond

	ok1 := model.Contact{ID: "01HQ0000000000000000000001", Name: "Rahul", Email: "rahul@test.com", Subject: "Urgent move"}
	ok2 := model.Contact{ID: "01HQ0000000000000000000002", Name: "Asha", Email: "asha@test.com", Subject: "Priority quote"}
	bad := model.Contact{ID: "01HQ0000000000000000000003", Name: "Bounce", Email: "bounce@test", Subject: "Soon"}

	src.ch <- envelopeMessage(t, 1, ok1)
	src.ch <- envelopeMessage(t, 2, bad)
	src.ch <- kafka.Message{Offset: 3, Value: []byte("{not json")}
	src.ch <- envelopeMessage(t, 4, ok2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return src.commits() == 4 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// a failed delivery is committed too; the contact just stays unmarked
	src.mu.Lock()
	committed := append([]int64(nil), src.committed...)
	src.mu.Unlock()
	sort.Slice(committed, func(i, j int) bool { return committed[i] < committed[j] })
	require.Equal(t, []int64{1, 2, 3, 4}, committed)

	mu.Lock()
	defer mu.Unlock()
	sort.Strings(marked)
	require.Equal(t, []string{ok1.ID, ok2.ID}, marked)

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	// two emails each for ok1 and ok2, the operator alert for bad
	require.Len(t, mailer.sent, 5)
	for _, l := range mailer.lanes {
		require.Equal(t, model.LanePriority, l)
	}
}

func TestNotifierRejectsInvalidLane(t *testing.T) {
	w := NewNotifier(&chanSource{}, nil, nil, nil, nil, model.Lane("express"))
	require.Error(t, w.Run(context.Background()))
}
