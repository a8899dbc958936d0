package local

import (
	"context"
	"log/slog"
	"time"
)

// RunDueJobs drains every job due at now, invoking each scheduled
// function and settling the job with its outcome. Scheduled runs are
// unauthenticated: scheduling captures no identity.
//
// Returns the number of jobs that ran. A job whose invocation fails is
// marked failed and does not stop the drain.
func (h *Host) RunDueJobs(ctx context.Context, now time.Time) (int, error) {
	jobs, err := h.queue.Due(ctx, now)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, job := range jobs {
		desc, ok := h.registry.Lookup(string(job.Ref))
		if !ok {
			slog.Warn("scheduled job names unknown function", "job", job.ID, "ref", job.Ref)
			if err := h.queue.MarkFailed(ctx, job.ID, "unknown function "+string(job.Ref)); err != nil {
				return ran, err
			}
			continue
		}

		slog.Debug("running scheduled job", "job", job.ID, "ref", job.Ref)
		_, runErr := h.dispatch(ctx, desc, nil, job.Args)
		ran++

		if runErr != nil {
			slog.Warn("scheduled job failed", "job", job.ID, "ref", job.Ref, "error", runErr)
			if err := h.queue.MarkFailed(ctx, job.ID, runErr.Error()); err != nil {
				return ran, err
			}
			continue
		}
		if err := h.queue.MarkDone(ctx, job.ID); err != nil {
			return ran, err
		}
	}
	return ran, nil
}
