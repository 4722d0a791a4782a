package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notification channels.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// OutboundMessage is what the excluded delivery service consumes.
type OutboundMessage struct {
	Contact   string    `json:"contact"`
	Channel   string    `json:"channel"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier hands a message to the outbound email/SMS path. Best-effort:
// callers treat errors as log-and-continue.
type Notifier interface {
	Notify(ctx context.Context, contact, channel, message string) error
}

// AMQPNotifier publishes outbound messages onto a durable queue for the
// delivery service to drain.
type AMQPNotifier struct {
	ch    *amqp.Channel
	queue string
}

func NewAMQPNotifier(ch *amqp.Channel, queue string) (*AMQPNotifier, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &AMQPNotifier{ch: ch, queue: queue}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, contact, channel, message string) error {
	body, err := json.Marshal(OutboundMessage{
		Contact:   contact,
		Channel:   channel,
		Message:   message,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return n.ch.PublishWithContext(pubCtx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
	})
}

// LogNotifier logs instead of delivering. Dev fallback when no broker
// is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, contact, channel, message string) error {
	log.Printf("notify [%s] %s: %s", channel, contact, message)
	return nil
}

// Dispatcher decouples request handling from the outbound provider: a
// bounded queue and one worker, so a slow or failing provider can never
// block or fail the mutation that triggered the message.
type Dispatcher struct {
	notifier Notifier
	queue    chan OutboundMessage
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewDispatcher(n Notifier, depth int) *Dispatcher {
	if depth <= 0 {
		depth = 128
	}
	d := &Dispatcher{
		notifier: n,
		queue:    make(chan OutboundMessage, depth),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.notifier.Notify(ctx, msg.Contact, msg.Channel, msg.Message); err != nil {
			log.Printf("notifier: %s to %s failed: %v", msg.Channel, msg.Contact, err)
		}
		cancel()
	}
	close(d.done)
}

// Enqueue never blocks; if the queue is full, or the dispatcher has
// been closed, the message is dropped with a log line.
func (d *Dispatcher) Enqueue(contact, channel, message string) {
	if contact == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		log.Printf("notifier: dispatcher closed, dropping %s to %s", channel, contact)
		return
	}
	msg := OutboundMessage{Contact: contact, Channel: channel, Message: message, CreatedAt: time.Now()}
	select {
	case d.queue <- msg:
	default:
		log.Printf("notifier: queue full, dropping %s to %s", channel, contact)
	}
}

// Close drains the queue and stops the worker. Enqueue calls racing a
// shutdown drop their message instead of hitting the closed channel.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}
