package notify

import (
	"bytes"
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/tradeops/cot-mapping-service/pkg/ingest"
	"github.com/tradeops/cot-mapping-service/pkg/mailbox"
)

// Mailer sends batch outcome notifications over SMTP using the active
// delivery configuration. Failures here are the caller's to log; they never
// change an ingest result already recorded.
type Mailer struct{}

func NewMailer() *Mailer {
	return &Mailer{}
}

func (m *Mailer) NotifySuccess(ctx context.Context, cfg *mailbox.Config, recipient, fileName string, result *ingest.Result) error {
	var body bytes.Buffer
	err := successTemplate.Execute(&body, successContext{
		FileName:        fileName,
		ProcessedAt:     time.Now().Format("2006-01-02 15:04:05"),
		TotalRows:       result.TotalRows,
		RowsInserted:    result.RowsInserted,
		RowsUpdated:     result.RowsUpdated,
		RowsSkipped:     result.RowsSkipped,
		NewChannels:     result.NewChannels,
		NewTradeClasses: result.NewTradeClasses,
	})
	if err != nil {
		return fmt.Errorf("rendering success notification: %w", err)
	}

	subject := fmt.Sprintf("CoT processing completed: %s", fileName)
	return m.send(ctx, cfg, recipient, subject, body.String())
}

func (m *Mailer) NotifyFailure(ctx context.Context, cfg *mailbox.Config, recipient, fileName string, ingestErr error) error {
	var body bytes.Buffer
	err := failureTemplate.Execute(&body, failureContext{
		FileName:    fileName,
		AttemptedAt: time.Now().Format("2006-01-02 15:04:05"),
		ErrorDetail: ingestErr.Error(),
	})
	if err != nil {
		return fmt.Errorf("rendering failure notification: %w", err)
	}

	subject := fmt.Sprintf("CoT processing error: %s", fileName)
	return m.send(ctx, cfg, recipient, subject, body.String())
}

func (m *Mailer) send(ctx context.Context, cfg *mailbox.Config, recipient, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(cfg.Username); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, body)

	client, err := gomail.NewClient(cfg.SMTPServer,
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("building smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending notification to %s: %w", recipient, err)
	}
	return nil
}
