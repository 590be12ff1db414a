package emailsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Kingsman71/Binary-Learning/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"

	errNotConfigured = errors.New("email service is not properly configured")
)

type SendgridSender struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

var _ core.EmailSender = (*SendgridSender)(nil)

func NewSendgridSender(conf *core.Config) *SendgridSender {
	return &SendgridSender{
		key:        conf.SendgridAPIKey,
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (s *SendgridSender) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)

	contents := []*sgmail.Content{sgmail.NewContent("text/plain", msg.TextContent)}
	if msg.HTMLContent != "" {
		contents = append(contents, sgmail.NewContent("text/html", msg.HTMLContent))
	}
	m.AddContent(contents...)
	return m
}

func getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (s *SendgridSender) Send(ctx context.Context, msg *core.EmailMessage) (core.SendResult, error) {
	if s.key == "" || s.from.Address == "" {
		return core.SendResult{Success: false, Error: errNotConfigured.Error()}, errNotConfigured
	}

	req := sendgrid.GetRequest(s.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(*msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		err = errors.Wrap(err, "sending email")
		return core.SendResult{Success: false, Error: err.Error()}, err
	}
	if res.StatusCode >= http.StatusBadRequest {
		err = fmt.Errorf("sending email - status: %d - body: %s", res.StatusCode, res.Body)
		return core.SendResult{Success: false, Error: err.Error()}, err
	}

	var id string
	if ids, ok := res.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		id = ids[0]
	}
	return core.SendResult{Success: true, ID: id}, nil
}
