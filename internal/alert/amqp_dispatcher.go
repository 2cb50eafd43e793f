package alert

import (
	"context"
	"dormancy-monitor/internal/dormancy"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	routingKeyPrefix     = "dormancy."
	routingKeyRunSummary = "dormancy.run_summary"
	dispatcherAppID      = "dormancy-monitor"
)

// AMQPDispatcher publishes alerts and run summaries on a topic exchange.
// The chat-rendering consumer lives on the other side of the broker.
type AMQPDispatcher struct {
	conn         *amqp.Connection
	exchangeName string
	logger       *slog.Logger
}

var _ Dispatcher = (*AMQPDispatcher)(nil)

func NewAMQPDispatcher(conn *amqp.Connection, exchangeName string, logger *slog.Logger) (*AMQPDispatcher, error) {
	if conn == nil {
		return nil, fmt.Errorf("AMQP connection cannot be nil")
	}
	if exchangeName == "" {
		return nil, fmt.Errorf("AMQP exchange name cannot be empty")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	tempCh, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open temporary channel for exchange declaration: %w", err)
	}
	defer tempCh.Close()

	err = tempCh.ExchangeDeclare(
		exchangeName,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Ensured AMQP exchange exists", "exchange", exchangeName, "type", amqp.ExchangeTopic)

	return &AMQPDispatcher{
		conn:         conn,
		exchangeName: exchangeName,
		logger:       logger.With("component", "AMQPDispatcher", "exchange", exchangeName),
	}, nil
}

type alertEnvelope struct {
	RunID     string        `json:"runId"`
	Timestamp time.Time     `json:"timestamp"`
	Alert     DormancyAlert `json:"alert"`
}

func (d *AMQPDispatcher) DispatchAlerts(ctx context.Context, runID string, alerts []DormancyAlert) error {
	for _, a := range alerts {
		envelope := alertEnvelope{RunID: runID, Timestamp: time.Now(), Alert: a}
		if err := d.publish(ctx, routingKeyPrefix+string(a.Tag), envelope); err != nil {
			return fmt.Errorf("failed to dispatch %s alert: %w", a.Tag, err)
		}
	}
	return nil
}

func (d *AMQPDispatcher) DispatchSummary(ctx context.Context, result *dormancy.AnalysisResult) error {
	return d.publish(ctx, routingKeyRunSummary, result)
}

func (d *AMQPDispatcher) publish(ctx context.Context, routingKey string, payload interface{}) error {
	logCtx := d.logger.With(slog.String("routingKey", routingKey))

	channel, err := d.conn.Channel()
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to open AMQP channel", slog.Any("error", err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	body, err := json.Marshal(payload)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to marshal alert payload to JSON", slog.Any("error", err))
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	logCtx.DebugContext(ctx, "Publishing message", "bodySize", len(body))

	err = channel.PublishWithContext(
		ctx,
		d.exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
			AppId:        dispatcherAppID,
		},
	)

	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish message to AMQP broker", slog.Any("error", err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logCtx.InfoContext(ctx, "Successfully published message")
	return nil
}
