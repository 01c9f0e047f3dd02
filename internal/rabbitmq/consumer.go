package rabbitmq

import (
	"context"
	"fmt"
	"log"

	"github.com/streadway/amqp"
)

// ConsumeMessages starts a consumer on queueName, handing each delivery to
// handler with at most prefetch in flight, matching the channel's QoS
// window. A handler error nacks the delivery back onto the queue.
func ConsumeMessages(ctx context.Context, ch *amqp.Channel, queueName string, prefetch int, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumeMessages"

	if prefetch < 1 {
		prefetch = 1
	}
	deliveries, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	inFlight := make(chan struct{}, prefetch)
	go func() {
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				inFlight <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-inFlight }()
					handleDelivery(d, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func handleDelivery(d amqp.Delivery, handler func([]byte) error) {
	if err := handler(d.Body); err != nil {
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Printf("failed to nack message: %v", nackErr)
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Printf("failed to ack message: %v", ackErr)
	}
}
