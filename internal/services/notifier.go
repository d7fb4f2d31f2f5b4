package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/brikvest/apiserver/internal/mail"
	"github.com/brikvest/apiserver/internal/mq"
)

// Notifier dispatches email jobs onto the message queue, falling back
// to synchronous delivery when no broker is configured. Notification
// failures never fail the triggering request; they are logged.
type Notifier struct {
	queue  *mq.MQ
	mailer *mail.Mailer
	logger *zap.Logger
}

func NewNotifier(queue *mq.MQ, mailer *mail.Mailer, logger *zap.Logger) *Notifier {
	return &Notifier{queue: queue, mailer: mailer, logger: logger}
}

// SendOTP queues the verification-code email.
func (n *Notifier) SendOTP(ctx context.Context, to, firstName, code string) {
	n.dispatch(ctx, mail.Job{
		Kind: mail.KindOTP,
		To:   to,
		Data: map[string]string{"FirstName": firstName, "Code": code},
	})
}

// SendWelcome queues the post-verification welcome email.
func (n *Notifier) SendWelcome(ctx context.Context, to, firstName string) {
	n.dispatch(ctx, mail.Job{
		Kind: mail.KindWelcome,
		To:   to,
		Data: map[string]string{"FirstName": firstName},
	})
}

// SendKYCDecision queues the review-outcome email.
func (n *Notifier) SendKYCDecision(ctx context.Context, to, firstName, status, note string) {
	n.dispatch(ctx, mail.Job{
		Kind: mail.KindKYCDecision,
		To:   to,
		Data: map[string]string{"FirstName": firstName, "Status": status, "Note": note},
	})
}

func (n *Notifier) dispatch(ctx context.Context, job mail.Job) {
	if n.queue == nil {
		if err := n.mailer.Send(job); err != nil {
			n.logger.Error("email delivery failed",
				zap.String("kind", job.Kind), zap.String("to", job.To), zap.Error(err))
		}
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		n.logger.Error("encoding email job failed", zap.String("kind", job.Kind), zap.Error(err))
		return
	}
	if _, err := n.queue.Publish(ctx, mq.ChannelEmail, data, map[string]string{"kind": job.Kind}); err != nil {
		n.logger.Error("queueing email job failed",
			zap.String("kind", job.Kind), zap.String("to", job.To), zap.Error(err))
	}
}
