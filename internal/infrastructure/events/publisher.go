package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"lspquotes-service/internal/application"
	"lspquotes-service/internal/domain"

	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "lspquotes.snapshots"

// SnapshotEvent is the message published after each persisted snapshot.
type SnapshotEvent struct {
	ChannelSizeSat int64          `json:"channel_size_sat"`
	UpdatedAt      time.Time      `json:"updated_at"`
	ProviderCount  int            `json:"provider_count"`
	LiveCount      int            `json:"live_count"`
	BestProviderID string         `json:"best_provider_id,omitempty"`
	BestFeeMsat    int64          `json:"best_fee_msat,omitempty"`
	Quotes         []domain.Quote `json:"quotes"`
}

func NewSnapshotEvent(s domain.Snapshot) SnapshotEvent {
	ev := SnapshotEvent{
		ChannelSizeSat: s.ChannelSizeSat,
		UpdatedAt:      s.UpdatedAt,
		ProviderCount:  s.ProviderCount,
		Quotes:         s.Quotes,
	}
	for _, q := range s.Quotes {
		if q.Provenance == domain.ProvenanceLive {
			ev.LiveCount++
		}
		if !q.Valid() {
			continue
		}
		if ev.BestProviderID == "" || q.TotalFeeMsat < ev.BestFeeMsat {
			ev.BestProviderID, ev.BestFeeMsat = q.ProviderID, q.TotalFeeMsat
		}
	}
	return ev
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes SnapshotEvents keyed by channel size, so consumers
// see each bucket's updates in order.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	now     func() time.Time
}

var _ application.SnapshotPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

func (k *KafkaPublisher) PublishSnapshot(ctx context.Context, s domain.Snapshot) error {
	msg, err := json.Marshal(NewSnapshotEvent(s))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(s.ChannelSizeSat, 10)),
		Value: msg,
		Time:  k.now(),
	})
}

func (k *KafkaPublisher) Close() error { return k.writer.Close() }
