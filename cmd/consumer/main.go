package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"openmusic/internal/broker"
	"openmusic/internal/config"
	"openmusic/internal/database"
	"openmusic/internal/logging"
	"openmusic/internal/mail"
	"openmusic/internal/metrics"
	"openmusic/internal/store"
	"openmusic/internal/worker"
)

const consumerTag = "openmusic-export-consumer"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.ValidateConsumer(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.SetGlobalLogger(logger)

	if err := run(cfg, logger); err != nil {
		log.Fatal().Err(err).Msg("consumer stopped")
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	sender, err := newSender(ctx, cfg.Mail)
	if err != nil {
		return err
	}

	mq, err := broker.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	defer mq.Close()

	w := worker.New(store.New(db), sender, worker.Config{
		Subject:      cfg.Mail.Subject,
		RateLimit:    cfg.Mail.RateLimit,
		SendTimeout:  cfg.Mail.SendTimeout,
		RequeueDelay: cfg.RabbitMQ.RequeueDelay,
	}, logger.With("export_worker"))

	metricsServer := metrics.NewServer(cfg.Metrics.Addr)
	go func() {
		log.Info().Str("addr", metricsServer.Addr).Msg("metrics listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	consume(ctx, mq, w, cfg.RabbitMQ.ExportQueue, cfg.RabbitMQ.Prefetch)
	log.Info().Msg("consumer shut down")
	return nil
}

// consume runs the worker until ctx is cancelled, re-subscribing with
// backoff whenever the delivery channel closes.
func consume(ctx context.Context, mq *broker.Client, w *worker.Worker, queue string, prefetch int) {
	backoff := 500 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for ctx.Err() == nil {
		deliveries, err := mq.Consume(queue, consumerTag, prefetch)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Str("queue", queue).Msg("consume failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("queue", queue).Int("prefetch", prefetch).Msg("consuming export jobs")

		if err := w.Run(ctx, deliveries); err != nil {
			log.Warn().Err(err).Msg("delivery channel closed, reconnecting")
		}
	}
}

func newSender(ctx context.Context, cfg config.MailConfig) (mail.Sender, error) {
	from := mail.From{Address: cfg.From, Name: cfg.FromName}

	switch cfg.Transport {
	case "ses":
		return mail.NewSESSender(ctx, from)
	default:
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
		}, from)
	}
}
