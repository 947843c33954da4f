package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/downscaler/internal/config"
	"github.com/aliskhannn/downscaler/internal/model"
)

// sender is the part of the wbf Kafka producer used here.
type sender interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key, value []byte) error
	Close() error
}

// Event is the message published for every finished directory entry.
type Event struct {
	RunID      string       `json:"run_id"`
	Result     model.Result `json:"result"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Producer publishes per-file results to Kafka.
type Producer struct {
	client   sender
	strategy retry.Strategy
	runID    string
	now      func() time.Time
}

// New creates a new Producer.
// - cfg: Kafka configuration struct
// - s: retry strategy
// - runID: identifier of the batch run, used in message keys
func New(cfg *config.Kafka, s retry.Strategy, runID string) *Producer {
	return newProducer(wbfkafka.NewProducer(cfg.Brokers, cfg.Topic), s, runID)
}

func newProducer(c sender, s retry.Strategy, runID string) *Producer {
	return &Producer{client: c, strategy: s, runID: runID, now: time.Now}
}

// Publish serializes the result to JSON and sends it to Kafka.
// The message key is "<run id>/<file name>" so events of one file stay ordered.
func (p *Producer) Publish(ctx context.Context, res model.Result) error {
	data, err := json.Marshal(Event{RunID: p.runID, Result: res, FinishedAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := []byte(p.runID + "/" + res.Name)

	if err = p.client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

// Close closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.client.Close()
}
