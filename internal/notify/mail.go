package notify

//go:generate mockgen -destination=mocks/email.go -package=mocks kvcheck/pkg/email Sender

import (
	"context"
	"log/slog"

	dErrors "kvcheck/pkg/domain-errors"
	"kvcheck/pkg/email"
)

// MailWorker renders a work item and mails it, one message per item.
type MailWorker struct {
	sender   email.Sender
	from     string
	renderer *Renderer
	logger   *slog.Logger
}

// MailOption configures a MailWorker.
type MailOption func(*MailWorker)

func WithMailLogger(logger *slog.Logger) MailOption {
	return func(w *MailWorker) {
		w.logger = logger
	}
}

// NewMailWorker creates a MailWorker sending as from.
func NewMailWorker(sender email.Sender, from string, renderer *Renderer, opts ...MailOption) *MailWorker {
	w := &MailWorker{sender: sender, from: from, renderer: renderer, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *MailWorker) Handle(ctx context.Context, job Job) error {
	if job.Item == nil {
		return dErrors.New(dErrors.CodeDataShape, "job carries no work item")
	}
	payload, err := job.Item.Payload()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeDataShape, "decode work item payload")
	}
	body, err := w.renderer.RenderPayload(job.Process, payload)
	if err != nil {
		return err
	}
	to, err := job.Recipient.Resolve(payload)
	if err != nil {
		return err
	}

	err = w.Send(ctx, email.Message{
		From:     w.from,
		To:       to,
		Subject:  job.Subject,
		HTMLBody: body,
	})
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "mail sent",
		"process", job.Process,
		"reference", job.Item.Reference,
		"recipients", len(to),
	)
	return nil
}

// Send hands one message to the transport without retrying.
func (w *MailWorker) Send(ctx context.Context, msg email.Message) error {
	if err := w.sender.Send(ctx, msg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "send mail")
	}
	return nil
}
