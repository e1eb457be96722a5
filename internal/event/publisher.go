package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// ExchangeName is the topic exchange attempt events are published to.
const ExchangeName = "attempt.events"

// Publisher emits attempt lifecycle events.
type Publisher interface {
	PublishAttemptStarted(ctx context.Context, e *AttemptStartedEvent) error
	PublishAttemptFinalized(ctx context.Context, e *AttemptFinalizedEvent) error
	Close() error
}

// EventPublisher publishes JSON events to a RabbitMQ topic exchange.
type EventPublisher struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	enabled      bool
	mu           sync.Mutex // amqp channels are not safe for concurrent publish
	log          zerolog.Logger
}

// NewEventPublisher dials the broker and declares the exchange. An empty
// URI yields a disabled publisher that drops every event.
func NewEventPublisher(rabbitURI string, log zerolog.Logger) (*EventPublisher, error) {
	log = log.With().Str("component", "event_publisher").Logger()
	if rabbitURI == "" {
		log.Warn().Msg("AMQP URL is empty, event publishing is disabled")
		return &EventPublisher{enabled: false, log: log}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	log.Info().Str("exchange", ExchangeName).Msg("RabbitMQ connected")

	return &EventPublisher{
		conn:         conn,
		channel:      channel,
		exchangeName: ExchangeName,
		enabled:      true,
		log:          log,
	}, nil
}

func (p *EventPublisher) publishEvent(ctx context.Context, routingKey string, event any) error {
	if !p.enabled {
		p.log.Debug().Str("routing_key", routingKey).Msg("Event publishing disabled, skipping")
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.log.Debug().Str("routing_key", routingKey).Msg("Published event")
	return nil
}

func (p *EventPublisher) PublishAttemptStarted(ctx context.Context, e *AttemptStartedEvent) error {
	return p.publishEvent(ctx, string(EventTypeAttemptStarted), e)
}

func (p *EventPublisher) PublishAttemptFinalized(ctx context.Context, e *AttemptFinalizedEvent) error {
	return p.publishEvent(ctx, string(EventTypeAttemptFinalized), e)
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.Warn().Err(err).Msg("Error closing RabbitMQ channel")
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}

	return nil
}
