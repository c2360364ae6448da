package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const consumerTag = "gobarber-mailer"

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

func DeclareQueue(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %q: %w", name, err)
	}
	return nil
}

// QueueProvider renders messages and publishes them for the mailer worker.
type QueueProvider struct {
	renderer *Renderer
	ch       publisher
	queue    string
}

func NewQueueProvider(renderer *Renderer, ch publisher, queue string) *QueueProvider {
	return &QueueProvider{renderer: renderer, ch: ch, queue: queue}
}

func (p *QueueProvider) Send(ctx context.Context, msg Message) error {
	env, err := p.renderer.Render(msg)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %q: %w", p.queue, err)
	}
	return nil
}

type Worker struct {
	ch     consumer
	queue  string
	sender EnvelopeSender
	log    *zap.Logger
}

func NewWorker(ch consumer, queue string, sender EnvelopeSender, log *zap.Logger) *Worker {
	return &Worker{ch: ch, queue: queue, sender: sender, log: log.With(zap.String("component", "mail.worker"))}
}

// Run consumes envelopes until ctx is cancelled or the delivery channel closes.
// Undecodable payloads are dropped. Failed deliveries are requeued once.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.ch.Consume(w.queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %q: %w", w.queue, err)
	}

	w.log.Info("mailer worker started", zap.String("queue", w.queue))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("mailer worker stopping")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var env Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		w.log.Warn("dropping malformed envelope", zap.Error(err))
		w.settle(d.Nack(false, false))
		return
	}

	if err := w.sender.Deliver(ctx, env); err != nil {
		w.log.Error("mail delivery failed",
			zap.String("to", env.To.Email),
			zap.Bool("redelivered", d.Redelivered),
			zap.Error(err),
		)
		w.settle(d.Nack(false, !d.Redelivered))
		return
	}

	w.log.Info("mail delivered", zap.String("to", env.To.Email), zap.String("subject", env.Subject))
	w.settle(d.Ack(false))
}

func (w *Worker) settle(err error) {
	if err != nil {
		w.log.Warn("settle delivery", zap.Error(err))
	}
}
