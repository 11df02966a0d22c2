package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const (
	EventMoveSelected = "move_selected"
	EventGameFinished = "game_finished"
)

// Event is the envelope written to the topic.
type Event struct {
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer}
}

// Publish sends one event keyed by key. A nil Producer drops events.
func (p *Producer) Publish(ctx context.Context, event, key string, payload map[string]any) {
	if p == nil || p.writer == nil {
		return
	}
	data, err := Encode(event, payload, time.Now().UTC())
	if err != nil {
		log.WithError(err).WithField("event", event).Error("encode event")
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data}); err != nil {
		log.WithError(err).WithField("event", event).Warn("kafka publish failed")
	}
}

func Encode(event string, payload map[string]any, at time.Time) ([]byte, error) {
	return json.Marshal(Event{Event: event, Payload: payload, Timestamp: at})
}

func Decode(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

func (p *Producer) Close() {
	if p == nil || p.writer == nil {
		return
	}
	_ = p.writer.Close()
}
