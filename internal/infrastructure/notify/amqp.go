package notify

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes order-paid events to a durable queue consumed by
// the email service.
type AMQPNotifier struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewAMQPNotifier(url, queue string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPNotifier{conn: conn, ch: ch, queue: queue}, nil
}

func (n *AMQPNotifier) OrderPaid(ctx context.Context, ev OrderPaidEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (n *AMQPNotifier) Close() {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
}
