package kafka

import (
	"time"

	"github.com/alimikegami/digital-store/settlement-service/config"
	"github.com/segmentio/kafka-go"
)

// CreateKafkaWriter returns a writer for notification events. Messages are
// keyed by order id, so the hash balancer keeps one order's events in order.
func CreateKafkaWriter(conf config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(conf.BrokerAddress),
		Topic:                  conf.BrokerTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
}
