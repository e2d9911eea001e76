package notifier

import (
	"context"
	"errors"
	"log/slog"

	"manifeed/internal/domain/entity"
)

// MultiNotifier fans a job-completion event out to every configured
// channel. One channel's failure does not stop delivery to the rest;
// all errors are joined and returned to the caller for logging.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier combines notifiers into a single fan-out Notifier.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (m *MultiNotifier) NotifyJobComplete(ctx context.Context, job *entity.Job) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.NotifyJobComplete(ctx, job); err != nil {
			slog.Warn("notifier channel failed", slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
