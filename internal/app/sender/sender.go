// Package sender wires the notification delivery worker: it consumes the
// downgrade and report queues and sends each notification to Telegram.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/config"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/rabbitmq"
	senderservice "github.com/bosskutradingaplikasi-boop/MyKewangan/internal/services/sender"
	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/telegram"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
	prefetch      int
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues(), cfg.RabbitMQPrefetch)
	if err != nil {
		conn.Close()
		return nil, err
	}

	telegramClient := telegram.NewClient(cfg.BotToken)
	senderService := senderservice.New(telegramClient, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
		prefetch:      cfg.RabbitMQPrefetch,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	handler := func(body []byte) error {
		return a.senderService.SendNotification(ctx, body)
	}

	for _, queue := range rabbitmq.GetNotificationQueues() {
		if err := rabbitmq.ConsumeMessages(ctx, a.ch, queue.QueueName, a.prefetch, handler); err != nil {
			a.logger.Error("failed to start consumer",
				slog.String("queue", queue.QueueName), slog.Any("err", err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	return nil
}
