// internal/queue/queue.go
package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/google/uuid"
    "github.com/sirupsen/logrus"
    "github.com/streadway/amqp"
)

// Publisher is the write-side surface the workers depend on.
type Publisher interface {
    Publish(queueName string, payload interface{}) error
}

// Handler processes one delivery body. A nil return acknowledges the message;
// an error negative-acknowledges it with requeue.
type Handler func(ctx context.Context, body []byte) error

// Client owns one long-lived AMQP connection and channel instead of
// reconnecting per publish. Prefetch is fixed at one in-flight job so
// per-contact sending inside a campaign stays sequential.
type Client struct {
    conn    *amqp.Connection
    channel *amqp.Channel
}

func Dial(url string) (*Client, error) {
    conn, err := amqp.Dial(url)
    if err != nil {
        return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
    }

    channel, err := conn.Channel()
    if err != nil {
        conn.Close()
        return nil, fmt.Errorf("failed to open channel: %w", err)
    }

    for _, name := range []string{ReadyQueue, DueQueue} {
        _, err := channel.QueueDeclare(
            name,  // name
            true,  // durable
            false, // delete when unused
            false, // exclusive
            false, // no-wait
            nil,   // arguments
        )
        if err != nil {
            channel.Close()
            conn.Close()
            return nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
        }
    }

    if err := channel.Qos(1, 0, false); err != nil {
        channel.Close()
        conn.Close()
        return nil, fmt.Errorf("failed to set prefetch: %w", err)
    }

    return &Client{conn: conn, channel: channel}, nil
}

// Publish sends one JSON message to the named queue.
func (c *Client) Publish(queueName string, payload interface{}) error {
    body, err := json.Marshal(payload)
    if err != nil {
        return fmt.Errorf("failed to marshal message: %w", err)
    }

    err = c.channel.Publish(
        "",        // exchange
        queueName, // routing key
        false,     // mandatory
        false,     // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            MessageId:    uuid.NewString(),
            Timestamp:    time.Now(),
            Body:         body,
        },
    )
    if err != nil {
        return fmt.Errorf("failed to publish to %s: %w", queueName, err)
    }
    return nil
}

// Consume blocks delivering messages from the named queue to handler until
// ctx is cancelled. Manual acks only: handler error means nack with requeue.
func (c *Client) Consume(ctx context.Context, queueName string, handler Handler) error {
    tag := queueName + "-" + uuid.NewString()[:8]
    deliveries, err := c.channel.Consume(
        queueName,
        tag,
        false, // autoAck off for reliability
        false,
        false,
        false,
        nil,
    )
    if err != nil {
        return fmt.Errorf("failed to register consumer on %s: %w", queueName, err)
    }

    logrus.WithFields(logrus.Fields{"queue": queueName, "consumer": tag}).Info("consuming")

    for {
        select {
        case <-ctx.Done():
            // Stop accepting new deliveries; unacked messages are redelivered.
            if err := c.channel.Cancel(tag, false); err != nil {
                logrus.WithError(err).Warn("failed to cancel consumer")
            }
            return nil
        case d, ok := <-deliveries:
            if !ok {
                return nil
            }
            if err := handler(ctx, d.Body); err != nil {
                logrus.WithFields(logrus.Fields{
                    "queue":      queueName,
                    "message_id": d.MessageId,
                }).WithError(err).Warn("job failed, requeueing")
                if nerr := d.Nack(false, true); nerr != nil {
                    logrus.WithError(nerr).Error("failed to nack message")
                }
                continue
            }
            if aerr := d.Ack(false); aerr != nil {
                logrus.WithError(aerr).Error("failed to ack message")
            }
        }
    }
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
    if c.channel != nil {
        if err := c.channel.Close(); err != nil {
            logrus.WithError(err).Warn("error closing channel")
        }
    }
    if c.conn != nil {
        if err := c.conn.Close(); err != nil {
            return err
        }
    }
    return nil
}
