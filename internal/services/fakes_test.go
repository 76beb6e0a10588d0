package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mailmaster/internal/mail"
)

type fakeQueue struct {
	campaigns []string
	welcomes  []string
	err       error
}

func (q *fakeQueue) EnqueueCampaignSend(_ context.Context, id string) error {
	if q.err != nil {
		return q.err
	}
	q.campaigns = append(q.campaigns, id)
	return nil
}

func (q *fakeQueue) EnqueueWelcome(_ context.Context, id string) error {
	if q.err != nil {
		return q.err
	}
	q.welcomes = append(q.welcomes, id)
	return nil
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []mail.Message
	failTo map[string]bool
	onSend func()
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onSend != nil {
		m.onSend()
	}
	if m.failTo[msg.To] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeArchiver struct {
	objects map[string][]byte
	err     error
}

func (a *fakeArchiver) Put(_ context.Context, key string, body []byte, _ string) error {
	if a.err != nil {
		return a.err
	}
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[key] = body
	return nil
}

func (a *fakeArchiver) SignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://archive.test/%s?expires=%d", key, int(expiry.Seconds())), nil
}
