package alert

import (
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/studygraph/pkg/config"
)

func testConfig() config.AlertConfig {
	return config.AlertConfig{
		Enabled:  true,
		SMTPHost: "mail.example.com",
		SMTPPort: 587,
		From:     "studygraph@example.com",
		To:       []string{"ops@example.com", "oncall@example.com"},
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		cfg   func() config.AlertConfig
		email bool
	}{
		{"enabled", testConfig, true},
		{"disabled", func() config.AlertConfig { c := testConfig(); c.Enabled = false; return c }, false},
		{"no host", func() config.AlertConfig { c := testConfig(); c.SMTPHost = ""; return c }, false},
		{"no recipients", func() config.AlertConfig { c := testConfig(); c.To = nil; return c }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, isEmail := New(tt.cfg()).(*EmailAlerter)
			assert.Equal(t, tt.email, isEmail)
		})
	}
}

func TestEmailAlerter(t *testing.T) {
	var gotAddr string
	var gotTo []string
	var gotMsg string
	a := NewEmailAlerter(testConfig())
	a.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, a.Alert("Load failed", "questions.jsonl stopped at record 50"))
	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Len(t, gotTo, 2)
	assert.Contains(t, gotMsg, "Subject: [studygraph] Load failed\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "stopped at record 50\r\n"))

	a.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	err := a.Alert("x", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

type recordingAlerter struct {
	mu       sync.Mutex
	subjects []string
	done     chan struct{}
}

func (r *recordingAlerter) Alert(subject, message string) error {
	r.mu.Lock()
	r.subjects = append(r.subjects, subject)
	r.mu.Unlock()
	close(r.done)
	return nil
}

func TestAsync(t *testing.T) {
	r := &recordingAlerter{done: make(chan struct{})}
	Async(r, nil, "Circuit breaker open", "embedder")

	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("alert was not delivered")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, []string{"Circuit breaker open"}, r.subjects)

	// No-op and nil alerters are accepted.
	Async(NoOpAlerter{}, nil, "ignored", "")
	Async(nil, nil, "ignored", "")
}
