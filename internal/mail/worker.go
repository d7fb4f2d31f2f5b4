package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/brikvest/apiserver/internal/mq"
)

// Worker consumes queued email jobs and delivers them over SMTP.
type Worker struct {
	mailer *Mailer
	queue  *mq.MQ
	logger *zap.Logger
}

func NewWorker(mailer *Mailer, queue *mq.MQ, logger *zap.Logger) *Worker {
	return &Worker{mailer: mailer, queue: queue, logger: logger}
}

// Run blocks consuming the email channel until ctx is cancelled or the
// subscription fails. Delivery errors are logged and the message is
// redelivered by the broker.
func (w *Worker) Run(ctx context.Context) error {
	return w.queue.Subscribe(ctx, mq.ChannelEmail, func(ctx context.Context, msg mq.Message) error {
		var job Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			// Poison message, do not requeue.
			w.logger.Error("discarding malformed email job",
				zap.String("message_id", msg.ID), zap.Error(err))
			return nil
		}
		if err := w.mailer.Send(job); err != nil {
			w.logger.Error("email delivery failed",
				zap.String("kind", job.Kind), zap.String("to", job.To), zap.Error(err))
			return fmt.Errorf("deliver email: %w", err)
		}
		w.logger.Info("email delivered", zap.String("kind", job.Kind), zap.String("to", job.To))
		return nil
	})
}
