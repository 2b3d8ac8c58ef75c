package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const producerName = "loja-core"

// Publisher writes envelopes to Kafka through a buffered inbox so callers
// never block on the broker. A nil *Publisher is a valid no-op, which is
// what the wiring uses when no brokers are configured.
type Publisher struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	logger  zerolog.Logger
}

// NewPublisher creates a publisher, or nil when brokers is empty.
func NewPublisher(brokers []string, logger zerolog.Logger) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		inbox:   make(chan kafka.Message, 256),
		closeCh: make(chan struct{}),
		logger:  logger.With().Str("component", "event-publisher").Logger(),
	}
}

// Start runs the delivery loop until ctx is cancelled, then drains the inbox.
func (p *Publisher) Start(ctx context.Context) {
	if p == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.drain()
				_ = p.w.Close()
				close(p.closeCh)
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

// drain flushes whatever is queued at shutdown. The inbox channel itself is
// never closed, so a straggler Publish racing the shutdown at worst drops
// its event instead of panicking on a closed channel.
func (p *Publisher) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			return
		}
	}
}

func (p *Publisher) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.logger.Error().
			Err(err).
			Str("topic", m.Topic).
			Msg("failed to publish event")
	}
}

// Publish enqueues one order lifecycle event. The message key is the order
// id so all events of one order stay on one partition.
func (p *Publisher) Publish(topic string, orderID uuid.UUID, payload OrderEventPayload) {
	if p == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("failed to marshal event payload")
		return
	}

	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     topic,
		EventVersion:  1,
		OccurredAt:    time.Now(),
		Producer:      producerName,
		CorrelationID: orderID.String(),
		Payload:       body,
	}

	value, err := json.Marshal(env)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("failed to marshal event envelope")
		return
	}

	select {
	case <-p.closeCh:
		p.logger.Warn().Str("topic", topic).Msg("publisher stopped, dropping event")
		return
	default:
	}

	select {
	case p.inbox <- kafka.Message{Topic: topic, Key: []byte(orderID.String()), Value: value, Time: time.Now()}:
	default:
		p.logger.Warn().Str("topic", topic).Msg("event inbox full, dropping event")
	}
}

// Wait blocks until the delivery loop has drained after Start's context was
// cancelled.
func (p *Publisher) Wait() {
	if p == nil {
		return
	}
	<-p.closeCh
}
