// Package worker executes playlist export jobs taken from the broker: it
// reads a snapshot of the playlist, mails it as a JSON attachment and
// acknowledges the message once the job has reached a terminal outcome.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"openmusic/internal/app/exports"
	"openmusic/internal/apperr"
	"openmusic/internal/mail"
	"openmusic/internal/metrics"
	"openmusic/internal/store"
)

// AttachmentName is the filename of the exported playlist document.
const AttachmentName = "playlist.json"

// ErrDeliveriesClosed is returned by Run when the broker stops delivering,
// typically because the connection was lost.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Outcome is the terminal state of one delivered message.
type Outcome string

const (
	OutcomeDelivered         Outcome = "delivered"
	OutcomeMalformed         Outcome = "malformed"
	OutcomePlaylistMissing   Outcome = "playlist_missing"
	OutcomeStoreFailed       Outcome = "store_failed"
	OutcomeRequeued          Outcome = "requeued"
	OutcomeDeliveryUncertain Outcome = "delivery_uncertain"
)

// Requeue reports whether the message goes back on the queue instead of
// being acknowledged.
func (o Outcome) Requeue() bool {
	return o == OutcomeRequeued
}

// Store reads playlist snapshots.
type Store interface {
	PlaylistSnapshot(ctx context.Context, playlistID string) (store.PlaylistSnapshot, error)
}

// Config tunes a Worker.
type Config struct {
	Subject string
	// RateLimit caps sends per second; 0 disables pacing.
	RateLimit float64
	// SendTimeout bounds a single send; 0 means no deadline.
	SendTimeout time.Duration
	// RequeueDelay is how long a transient store failure is held before the
	// job goes back to the queue; 0 requeues at once.
	RequeueDelay time.Duration
}

// Worker processes export jobs one at a time.
type Worker struct {
	store       Store
	sender      mail.Sender
	subject     string
	limiter      *rate.Limiter
	sendTimeout  time.Duration
	requeueDelay time.Duration
	logger       zerolog.Logger
}

// New constructs a Worker.
func New(st Store, sender mail.Sender, cfg Config, logger zerolog.Logger) *Worker {
	w := &Worker{
		store:        st,
		sender:       sender,
		subject:      cfg.Subject,
		sendTimeout:  cfg.SendTimeout,
		requeueDelay: cfg.RequeueDelay,
		logger:       logger,
	}
	if w.subject == "" {
		w.subject = "Playlist Export"
	}
	if cfg.RateLimit > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return w
}

// document is the attachment layout: {"playlist": {id, name, songs}}.
type document struct {
	Playlist store.PlaylistSnapshot `json:"playlist"`
}

// Run consumes deliveries serially until ctx is cancelled or the channel
// closes. A job that has started always runs to its terminal outcome and is
// acknowledged, even if ctx is cancelled meanwhile. Cancelling ctx only cuts
// short the wait before a requeue.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			w.process(ctx, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, d amqp.Delivery) {
	start := time.Now()
	logger := w.logger.With().
		Str("job_id", d.MessageId).
		Uint64("delivery_tag", d.DeliveryTag).
		Bool("redelivered", d.Redelivered).
		Logger()

	outcome, err := w.Handle(context.WithoutCancel(ctx), d.Body, d.Redelivered)

	var ackErr error
	if outcome.Requeue() {
		w.holdBeforeRequeue(ctx)
		ackErr = d.Nack(false, true)
	} else {
		ackErr = d.Ack(false)
	}

	metrics.ExportJobs.WithLabelValues(string(outcome)).Inc()
	metrics.ExportJobDuration.Observe(time.Since(start).Seconds())

	level := zerolog.ErrorLevel
	switch outcome {
	case OutcomeDelivered:
		level = zerolog.InfoLevel
	case OutcomeRequeued:
		level = zerolog.WarnLevel
	}
	logger.WithLevel(level).Err(err).
		Str("outcome", string(outcome)).
		Dur("duration_ms", time.Since(start)).
		Msg("export job finished")

	if ackErr != nil {
		logger.Error().Err(ackErr).Str("outcome", string(outcome)).Msg("acknowledge export job")
	}
}

func (w *Worker) holdBeforeRequeue(ctx context.Context) {
	if w.requeueDelay <= 0 {
		return
	}
	t := time.NewTimer(w.requeueDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Handle runs one job to its outcome without touching the broker. The send
// is attempted at most once per call.
func (w *Worker) Handle(ctx context.Context, body []byte, redelivered bool) (Outcome, error) {
	job, err := exports.ParseJob(body)
	if err != nil {
		return OutcomeMalformed, apperr.Wrap(err, apperr.KindTerminalJobFailure, "malformed export job")
	}

	snapshot, err := w.store.PlaylistSnapshot(ctx, job.PlaylistID)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotFound):
		return OutcomePlaylistMissing, apperr.Wrap(err, apperr.KindTerminalJobFailure, "playlist "+job.PlaylistID+" not found")
	case !redelivered:
		// Nothing has been sent yet, so one more attempt is safe.
		return OutcomeRequeued, apperr.Wrap(err, apperr.KindUnavailable, "read playlist snapshot")
	default:
		return OutcomeStoreFailed, apperr.Wrap(err, apperr.KindTerminalJobFailure, "read playlist snapshot after redelivery")
	}

	content, err := json.MarshalIndent(document{Playlist: snapshot}, "", "  ")
	if err != nil {
		return OutcomeStoreFailed, apperr.Wrap(err, apperr.KindTerminalJobFailure, "encode playlist snapshot")
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return OutcomeDeliveryUncertain, apperr.Wrap(err, apperr.KindDeliveryUncertain, "wait for send slot")
		}
	}

	if err := w.send(ctx, job.TargetEmail, content); err != nil {
		return OutcomeDeliveryUncertain, apperr.Wrap(err, apperr.KindDeliveryUncertain, fmt.Sprintf("send export to %s", job.TargetEmail))
	}

	return OutcomeDelivered, nil
}

func (w *Worker) send(ctx context.Context, to string, content []byte) error {
	if w.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.sendTimeout)
		defer cancel()
	}

	return w.sender.Send(ctx, mail.Message{
		To:      to,
		Subject: w.subject,
		Body:    string(content),
		Attachments: []mail.Attachment{{
			Filename:    AttachmentName,
			ContentType: "application/json",
			Content:     content,
		}},
	})
}
