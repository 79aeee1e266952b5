package kafka

import (
	"context"
	"encoding/json"

	"ms-checkout/internal/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

type orderCompletedEvent struct {
	models.Order
	ProductItemIDs []string `json:"product_item_ids"`
}

// PublishOrderCompleted streams the completed order to the notification
// pipeline.
func (p *Producer) PublishOrderCompleted(order models.Order, itemIDs []string) error {
	msgBytes, err := json.Marshal(orderCompletedEvent{Order: order, ProductItemIDs: itemIDs})
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(order.ID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
