package emailsvc

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kingsman71/Binary-Learning/core"
	"github.com/Kingsman71/Binary-Learning/tests"
)

// flakySender fails its first `failures` sends.
type flakySender struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *flakySender) Send(context.Context, *core.EmailMessage) (core.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return core.SendResult{Error: "temporary failure"}, errors.New("temporary failure")
	}
	return core.SendResult{Success: true, ID: "msg-1"}, nil
}

type outcome struct {
	delivered bool
	attempts  int
}

type chanObserver chan outcome

func (o chanObserver) Delivered(_ string, attempts int) { o <- outcome{true, attempts} }
func (o chanObserver) Failed(_ string, attempts int)    { o <- outcome{false, attempts} }

func newMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:      []mail.Address{{Name: "Ada", Address: "ada@test.cd"}},
		Subject: "Hello",
		BodyStr: "Hello Ada",
	}
}

func waitOutcome(t *testing.T, obs chanObserver) outcome {
	t.Helper()
	select {
	case o := <-obs:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("no delivery outcome")
	}
	return outcome{}
}

func TestService_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Email.MaxRetries = 2
	conf.Email.RetryDelay = time.Millisecond

	tests := []struct {
		name     string
		failures int
		want     outcome
	}{
		{name: "first attempt", failures: 0, want: outcome{true, 1}},
		{name: "after retries", failures: 2, want: outcome{true, 3}},
		{name: "gives up", failures: 5, want: outcome{false, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &flakySender{failures: tt.failures}
			obs := make(chanObserver, 1)
			svc := NewService(sender, testutil.NewLogger(), conf, obs)

			svc.SendMessages(newMessage())
			assert.Equal(t, tt.want, waitOutcome(t, obs))
		})
	}
}

func TestService_SendMessages_unknownTemplate(t *testing.T) {
	obs := make(chanObserver, 1)
	sender := &flakySender{}
	svc := NewService(sender, testutil.NewLogger(), core.NewTestConfig(), obs)

	svc.SendMessages(&core.EmailMessage{To: newMessage().To, TemplateName: "no_such_template"})
	assert.Equal(t, outcome{false, 0}, waitOutcome(t, obs))
	assert.Zero(t, sender.calls)
}

func TestConsoleSender_Send(t *testing.T) {
	conf := core.NewTestConfig()
	s := NewConsoleSenderMock(conf)

	res, err := s.Send(context.Background(), newMessage())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.ID)
	require.Len(t, s.SentMessages(), 1)

	msg := newMessage()
	msg.TextContent = "plain"
	msg.HTMLContent = "<p>html</p>"
	body, err := s.format(*msg)
	require.NoError(t, err)
	assert.True(t, strings.Contains(body, "Subject: ["+conf.AppName+"] Hello"), body)
	assert.Contains(t, body, "text/html")
	assert.Contains(t, body, "<p>html</p>")

	s.Reset()
	assert.Empty(t, s.SentMessages())
}

func TestServiceMock_SendMessages(t *testing.T) {
	s := NewConsoleSenderMock(core.NewTestConfig())
	svc := NewServiceMock(s, testutil.NewLogger())

	noRecipient := newMessage()
	noRecipient.To = nil
	svc.SendMessages(newMessage(), noRecipient)

	msgs := s.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello Ada", msgs[0].TextContent)
}
