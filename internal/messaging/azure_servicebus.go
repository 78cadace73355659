package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/restaurant/services/ordering/config"
)

// ReceiptRequest asks the worker to generate and store a receipt artifact
// for a paid order.
type ReceiptRequest struct {
	OrderID uint   `json:"order_id"`
	Email   string `json:"email"`
}

// ReceiptPublisher is the sending side the checkout workflow depends on.
type ReceiptPublisher interface {
	PublishReceiptRequest(ctx context.Context, req ReceiptRequest) error
}

// AzureServiceBus wraps the queue used to trigger receipt generation.
type AzureServiceBus struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
}

// NewAzureServiceBus creates a new Service Bus client for the receipt queue
func NewAzureServiceBus(cfg config.AzureConfig) (*AzureServiceBus, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &AzureServiceBus{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
	}, nil
}

// PublishReceiptRequest enqueues a receipt request for the worker.
func (b *AzureServiceBus) PublishReceiptRequest(ctx context.Context, req ReceiptRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "failed to marshal receipt request")
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"source": "checkout",
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	return b.sender.SendMessage(ctx, msg, nil)
}

// ProcessReceiptRequests receives receipt requests until the context is
// cancelled, handing each to handle. Failed messages are abandoned back to
// the queue for redelivery.
func (b *AzureServiceBus) ProcessReceiptRequests(ctx context.Context, handle func(ctx context.Context, req ReceiptRequest) error) error {
	receiver, err := b.client.NewReceiverForQueue(b.queueName, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create Service Bus receiver")
	}
	defer func() {
		if err := receiver.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error closing Service Bus receiver")
		}
	}()

	for {
		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to receive messages")
		}

		for _, message := range messages {
			var req ReceiptRequest
			if err := json.Unmarshal(message.Body, &req); err != nil {
				log.Error().Err(err).Str("message_id", message.MessageID).Msg("Malformed receipt request, dead-lettering")
				if err := receiver.DeadLetterMessage(ctx, message, nil); err != nil {
					log.Error().Err(err).Msg("(DeadLetterMessage) failed")
				}
				continue
			}

			if err := handle(ctx, req); err != nil {
				log.Error().Err(err).Uint("order_id", req.OrderID).Msg("Error processing receipt request")
				if err := receiver.AbandonMessage(ctx, message, nil); err != nil {
					log.Error().Err(err).Msg("(AbandonMessage) failed")
				}
				continue
			}

			if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
				log.Error().Err(err).Msg("(CompleteMessage) failed")
			}
		}
	}
}

// Close closes the Service Bus client
func (b *AzureServiceBus) Close() error {
	if b.sender != nil {
		if err := b.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if b.client != nil {
		return b.client.Close(context.Background())
	}
	return nil
}
