package repository

import (
	"context"
	"fmt"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
)

// messagePublisher is satisfied by *kafka.Producer.
type messagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaReportPublisher publishes reports keyed by symbol so that reports for
// one symbol stay ordered on a partition.
type KafkaReportPublisher struct {
	producer messagePublisher
	topic    string
}

func NewKafkaReportPublisher(p messagePublisher, topic string) *KafkaReportPublisher {
	return &KafkaReportPublisher{producer: p, topic: topic}
}

func (p *KafkaReportPublisher) PublishReport(ctx context.Context, report *models.Report) error {
	// the path is chart data; consumers only need the summary
	msg := *report
	msg.Path = nil
	if err := p.producer.Publish(ctx, p.topic, []byte(report.Symbol), msg); err != nil {
		return fmt.Errorf("publish report %s: %w", report.RunID, err)
	}
	return nil
}
