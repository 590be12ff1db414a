package emailsvc

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Kingsman71/Binary-Learning/core"
)

// ConsoleSender writes messages to stdout instead of delivering them. It keeps every sent message.
type ConsoleSender struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	out              *log.Logger

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailSender = (*ConsoleSender)(nil)

func NewConsoleSender(conf *core.Config) *ConsoleSender {
	return &ConsoleSender{
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
		out:              log.New(os.Stdout, "EMAIL : ", log.LstdFlags),
	}
}

// NewConsoleSenderMock returns a ConsoleSender that only records messages.
func NewConsoleSenderMock(conf *core.Config) *ConsoleSender {
	s := NewConsoleSender(conf)
	s.out = nil
	return s
}

func (s *ConsoleSender) Send(_ context.Context, msg *core.EmailMessage) (core.SendResult, error) {
	body, err := s.format(*msg)
	if err != nil {
		return core.SendResult{Success: false, Error: err.Error()}, err
	}
	if s.out != nil {
		s.out.Println(body)
	}

	s.mu.Lock()
	s.sent = append(s.sent, *msg)
	s.mu.Unlock()
	return core.SendResult{Success: true, ID: uuid.New().String()}, nil
}

// SentMessages returns a copy of the recorded messages.
func (s *ConsoleSender) SentMessages() []core.EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]core.EmailMessage, len(s.sent))
	copy(msgs, s.sent)
	return msgs
}

// Reset forgets the recorded messages.
func (s *ConsoleSender) Reset() {
	s.mu.Lock()
	s.sent = nil
	s.mu.Unlock()
}

func (s *ConsoleSender) format(msg core.EmailMessage) (string, error) {
	body := new(strings.Builder)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", s.defaultFromEmail.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", s.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", joinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", joinAddresses(msg.Cc))
	}

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", altW.Boundary())

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return "", errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}
	if err = altW.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart writer")
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
