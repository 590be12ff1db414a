package emailsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/Kingsman71/Binary-Learning/core"
)

const sendTimeout = 15 * time.Second

// Observer is notified of every delivery outcome.
type Observer interface {
	Delivered(template string, attempts int)
	Failed(template string, attempts int)
}

type noopObserver struct{}

func (noopObserver) Delivered(string, int) {}
func (noopObserver) Failed(string, int)    {}

type service struct {
	sender     core.EmailSender
	logger     core.Logger
	observer   Observer
	maxRetries int
	retryDelay time.Duration
}

var _ core.EmailService = (*service)(nil)

// NewService returns an EmailService delivering every message in its own goroutine,
// retrying failed sends up to conf.Email.MaxRetries times.
func NewService(sender core.EmailSender, logger core.Logger, conf *core.Config, observer Observer) core.EmailService {
	if observer == nil {
		observer = noopObserver{}
	}
	return &service{
		sender:     sender,
		logger:     logger,
		observer:   observer,
		maxRetries: conf.Email.MaxRetries,
		retryDelay: conf.Email.RetryDelay,
	}
}

func (svc *service) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go svc.deliver(msg)
	}
}

// deliver renders then sends `msg`. Waits `retryDelay` longer between each attempt.
func (svc *service) deliver(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
		svc.observer.Failed(msg.TemplateName, 0)
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}

	var err error
	attempts := 0
	for attempts <= svc.maxRetries {
		if attempts > 0 {
			time.Sleep(time.Duration(attempts) * svc.retryDelay)
		}
		attempts++
		if err = svc.send(msg); err == nil {
			svc.observer.Delivered(msg.TemplateName, attempts)
			return
		}
		svc.logger.Warn(fmt.Sprintf("sending email %q to %s (attempt %d): %v", msg.Subject, msg.Recipients(), attempts, err))
	}
	svc.observer.Failed(msg.TemplateName, attempts)
	svc.logger.Error(
		fmt.Sprintf("sending email %q to %s: giving up after %d attempts", msg.Subject, msg.Recipients(), attempts),
		core.NewDependencyError("notification", err),
	)
}

func (svc *service) send(msg *core.EmailMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	res, err := svc.sender.Send(ctx, msg)
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

type serviceMock struct {
	sender core.EmailSender
	logger core.Logger
}

// NewServiceMock returns an EmailService that renders and sends synchronously, without retries.
func NewServiceMock(sender core.EmailSender, logger core.Logger) core.EmailService {
	return &serviceMock{sender: sender, logger: logger}
}

func (svc *serviceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		if err := msg.Render(); err != nil {
			svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
			continue
		}
		if !msg.HasRecipients() || !msg.HasContent() {
			continue
		}
		if res, err := svc.sender.Send(context.Background(), msg); err != nil || !res.Success {
			svc.logger.Error(fmt.Sprintf("sending email %q to %s failed", msg.Subject, msg.Recipients()), err, res)
		}
	}
}
