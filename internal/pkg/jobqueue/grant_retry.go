package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/iiskills-cloud/appaccess/internal/pkg/access"
)

// GrantRetrier re-attempts the grant writes a bundle purchase could not
// complete. Each failed app becomes its own job, so one stuck row does not
// hold back its siblings.
type GrantRetrier struct {
	queue *Queue
	store *access.Store
	stats access.Invalidator
}

// NewGrantRetrier registers the grant_retry handler on q. stats may be nil;
// otherwise it is invalidated after every successful retry.
func NewGrantRetrier(q *Queue, store *access.Store, stats access.Invalidator) *GrantRetrier {
	r := &GrantRetrier{queue: q, store: store, stats: stats}
	q.Handle(JobTypeGrantRetry, r.process)
	return r
}

// RetryFailed enqueues one job per failed grant in res.
func (r *GrantRetrier) RetryFailed(ctx context.Context, res access.BundleResult) error {
	var errs []error
	for _, f := range res.Failed {
		payload := GrantRetryPayload{
			UserID:     res.UserID,
			AppID:      f.AppID,
			GrantedVia: f.GrantedVia,
			PaymentID:  res.PaymentID,
		}
		if _, err := r.queue.EnqueueJob(ctx, JobTypeGrantRetry, payload); err != nil {
			errs = append(errs, fmt.Errorf("enqueue %s: %w", f.AppID, err))
		}
	}
	return errors.Join(errs...)
}

func (r *GrantRetrier) process(ctx context.Context, job *Job) error {
	p := job.Payload
	_, err := r.store.Grant(ctx, access.GrantInput{
		UserID:     p.UserID,
		AppID:      p.AppID,
		GrantedVia: p.GrantedVia,
		PaymentID:  p.PaymentID,
	})
	if err == nil {
		log.Infof("[Access] retried grant user=%s app=%s via=%s succeeded", p.UserID, p.AppID, p.GrantedVia)
		if r.stats != nil {
			r.stats.Invalidate(ctx)
		}
		return nil
	}
	if errors.Is(err, access.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}
