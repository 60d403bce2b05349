package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alimikegami/digital-store/settlement-service/internal/dto"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const publishMaxRetries = 3

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaEventPublisher struct {
	writer  messageWriter
	backoff time.Duration
}

func CreateKafkaEventPublisher(writer messageWriter) EventPublisher {
	return &KafkaEventPublisher{
		writer:  writer,
		backoff: time.Second,
	}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, key string, msg dto.KafkaMessage) (err error) {
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Kafka message: %w", err)
	}

	for i := 0; i < publishMaxRetries; i++ {
		err = p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(key),
			Value: jsonMsg,
		})
		if err == nil {
			return nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "Publish").Str("event_type", msg.EventType).Int("attempt", i+1).Msg("")

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to write Kafka message: %w", ctx.Err())
		case <-time.After(p.backoff * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to write Kafka message after %d attempts: %w", publishMaxRetries, err)
}
