// Package exports accepts playlist export requests and hands them to the
// broker for the export consumer to execute.
package exports

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"openmusic/internal/apperr"
	"openmusic/internal/logging"
	"openmusic/internal/metrics"
)

// Publisher delivers a message body to a named durable queue and returns
// once the broker has accepted responsibility for it.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte, messageID string) error
}

// Ownership verifies that a user owns a playlist.
type Ownership interface {
	VerifyOwner(ctx context.Context, playlistID, userID string) error
}

// Service submits export jobs.
type Service interface {
	// Submit validates the request, checks that requesterID owns the
	// playlist and publishes the job. It returns the job ID used to
	// correlate consumer logs.
	Submit(ctx context.Context, playlistID, requesterID, targetEmail string) (string, error)
}

type service struct {
	owners    Ownership
	publisher Publisher
	queue     string
}

// New constructs a Service publishing to queue, or DefaultQueue when empty.
func New(owners Ownership, publisher Publisher, queue string) Service {
	if queue == "" {
		queue = DefaultQueue
	}
	return &service{owners: owners, publisher: publisher, queue: queue}
}

func (s *service) Submit(ctx context.Context, playlistID, requesterID, targetEmail string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	job := Job{PlaylistID: playlistID, TargetEmail: targetEmail}
	if err := job.Validate(); err != nil {
		metrics.ExportsSubmitted.WithLabelValues("rejected").Inc()
		return "", err
	}

	if err := s.owners.VerifyOwner(ctx, playlistID, requesterID); err != nil {
		metrics.ExportsSubmitted.WithLabelValues("rejected").Inc()
		return "", err
	}

	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode export job: %w", err)
	}

	jobID := uuid.NewString()
	if err := s.publisher.Publish(ctx, s.queue, body, jobID); err != nil {
		metrics.ExportsSubmitted.WithLabelValues("unavailable").Inc()
		return "", apperr.Wrap(err, apperr.KindUnavailable, "export queue unavailable")
	}

	metrics.ExportsSubmitted.WithLabelValues("published").Inc()
	logging.WithContext(ctx).Info().
		Str("job_id", jobID).
		Str("playlist_id", playlistID).
		Str("queue", s.queue).
		Msg("export job published")

	return jobID, nil
}
