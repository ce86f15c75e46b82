package metering

import (
	"testing"

	"frameworks/lookout/pkg/logging"
)

func TestNewPublisherRequiresBrokers(t *testing.T) {
	_, err := NewPublisher(PublisherConfig{Logger: logging.NewLogger()})
	if err == nil {
		t.Fatal("expected error when no brokers are configured")
	}
}

func TestNewPublisherDefaults(t *testing.T) {
	p, err := NewPublisher(PublisherConfig{
		Brokers: []string{"localhost:9092"},
		Logger:  logging.NewLogger(),
	})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer func() { _ = p.Close() }()

	if p.topic != "billing.usage_reports" {
		t.Errorf("expected default topic, got %q", p.topic)
	}
	if p.source != "lookout" {
		t.Errorf("expected default source, got %q", p.source)
	}
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var p *Publisher
	if err := p.PublishQueryEvent(QueryEvent{Mode: "decide"}); err != nil {
		t.Fatalf("nil publisher publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("nil publisher close: %v", err)
	}
	if p.Client() != nil {
		t.Fatal("nil publisher should have nil client")
	}
}
