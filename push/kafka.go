package push

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chat-service/logger"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes push requests to a topic consumed by the device push
// worker.
type KafkaSender struct {
	writer messageWriter
	log    *logger.Logger
}

func NewKafkaSender(brokers []string, topic string, log *logger.Logger) *KafkaSender {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaSender{writer: w, log: log}
}

// Send skips notifications without a device token.
func (s *KafkaSender) Send(ctx context.Context, n Notification) error {
	if strings.TrimSpace(n.Token) == "" {
		s.log.Debug("push skipped, no device token", "title", n.Title)
		return nil
	}
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal push: %w", err)
	}
	if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(n.Token), Value: value}); err != nil {
		return fmt.Errorf("publish push: %w", err)
	}
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
