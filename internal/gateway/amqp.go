package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "payouts"

	RoutingKeyRequested = "payout.requested"
	RoutingKeySettled   = "payout.settled"

	DefaultSettlementQueue = "freelance.payout.settled"
)

// AMQPGateway publishes payout orders to a topic exchange and consumes the
// provider's settlement messages.
type AMQPGateway struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
	handler SettlementHandler
	logger  *slog.Logger
}

// NewAMQPGateway dials url, declares the exchange and binds the settlement queue.
func NewAMQPGateway(url, queue string, handler SettlementHandler, logger *slog.Logger) (*AMQPGateway, error) {
	if queue == "" {
		queue = DefaultSettlementQueue
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := declareTopology(ch, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("payout gateway connected", "exchange", ExchangeName, "queue", queue)
	return &AMQPGateway{
		conn:    conn,
		channel: ch,
		queue:   queue,
		handler: handler,
		logger:  logger,
	}, nil
}

func declareTopology(ch *amqp091.Channel, queue string) error {
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring exchange: %w", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declaring queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, RoutingKeySettled, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("binding queue: %w", err)
	}
	return nil
}

// SetHandler replaces the settlement handler. Call before Consume.
func (g *AMQPGateway) SetHandler(h SettlementHandler) {
	g.handler = h
}

func (g *AMQPGateway) Dispatch(ctx context.Context, order PayoutOrder) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encoding payout order: %w", err)
	}
	err = g.channel.PublishWithContext(ctx, ExchangeName, RoutingKeyRequested, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp091.Persistent,
			CorrelationId: order.PaymentRequestID,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing payout order %s: %w", order.PaymentRequestID, err)
	}
	return nil
}

// Consume applies settlement messages until ctx is cancelled or the
// channel closes. Retryable handler failures are requeued.
func (g *AMQPGateway) Consume(ctx context.Context) error {
	if g.handler == nil {
		return fmt.Errorf("settlement handler not set")
	}
	deliveries, err := g.channel.ConsumeWithContext(ctx, g.queue, "freelance-settlements", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("registering consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			g.deliver(ctx, msg)
		}
	}
}

func (g *AMQPGateway) deliver(ctx context.Context, msg amqp091.Delivery) {
	requeue, err := g.apply(ctx, msg.Body)
	if err == nil {
		if err := msg.Ack(false); err != nil {
			g.logger.Error("ack settlement", "error", err)
		}
		return
	}
	g.logger.Warn("settlement not applied", "requeue", requeue, "error", err)
	if err := msg.Nack(false, requeue); err != nil {
		g.logger.Error("nack settlement", "error", err)
	}
}

// apply decodes and handles one settlement body. Malformed bodies are
// never requeued.
func (g *AMQPGateway) apply(ctx context.Context, body []byte) (requeue bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			requeue, err = true, fmt.Errorf("settlement handler panic: %v", r)
		}
	}()

	var s Settlement
	if err := json.Unmarshal(body, &s); err != nil {
		return false, fmt.Errorf("decoding settlement: %w", err)
	}
	if s.PaymentRequestID == "" {
		return false, fmt.Errorf("settlement without payment request id")
	}
	if err := g.handler(ctx, s); err != nil {
		return retryable(err), err
	}
	return false, nil
}

// retryable reports whether a handler failure may succeed on redelivery.
// A request that is already settled or was never approved stays that way.
func retryable(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindConflict, domain.KindNetwork, domain.KindInternal:
		return true
	default:
		return false
	}
}

func (g *AMQPGateway) Close() {
	if g.channel != nil {
		_ = g.channel.Close()
	}
	if g.conn != nil {
		_ = g.conn.Close()
	}
}
