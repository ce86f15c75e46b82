package metering

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"frameworks/lookout/pkg/kafka"
	"frameworks/lookout/pkg/logging"
)

type PublisherConfig struct {
	Brokers   []string
	ClusterID string
	Topic     string
	Source    string
	Logger    logging.Logger
}

type Publisher struct {
	producer *kafka.KafkaProducer
	topic    string
	source   string
	logger   logging.Logger
}

// QueryEvent describes one handled query request for usage billing.
type QueryEvent struct {
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	Mode        string    `json:"mode"`
	Backend     string    `json:"backend"`
	Decision    bool      `json:"decision"`
	ResultCount int       `json:"result_count"`
	DurationMs  int64     `json:"duration_ms"`
	Status      int       `json:"status"`
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required for usage publisher")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "billing.usage_reports"
	}
	source := cfg.Source
	if source == "" {
		source = "lookout"
	}
	clusterID := cfg.ClusterID
	if clusterID == "" {
		clusterID = "local"
	}
	producer, err := kafka.NewKafkaProducer(cfg.Brokers, clusterID, cfg.Logger)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		source:   source,
		logger:   cfg.Logger,
	}, nil
}

func (p *Publisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// Client returns the underlying Kafka client for health checks.
func (p *Publisher) Client() *kgo.Client {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.GetClient()
}

// PublishQueryEvent records one handled query request. A nil publisher is a
// no-op so handlers never branch on whether metering is configured.
func (p *Publisher) PublishQueryEvent(event QueryEvent) error {
	if p == nil || p.producer == nil {
		return nil
	}
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal usage event: %w", err)
	}
	err = p.producer.ProduceMessage(
		p.topic,
		[]byte(event.EventID),
		payload,
		map[string]string{
			"source": p.source,
			"type":   "query_event",
			"mode":   event.Mode,
		},
	)
	if err != nil {
		return err
	}
	if p.logger != nil {
		p.logger.WithFields(logging.Fields{
			"mode":   event.Mode,
			"topic":  p.topic,
			"status": event.Status,
		}).Debug("Published query usage event")
	}
	return nil
}
