// Package archive copies audit entries from the tenant-events topic into long-term log storage.
package archive

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const pushTimeout = 10 * time.Second

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Pusher stores one raw audit entry. Satisfied by *loki.Client.
type Pusher interface {
	PushEntryJSON(ctx context.Context, raw []byte) error
}

// Archiver drains a reader into a pusher. Push failures are logged and skipped; the consumer
// group offset still advances so one bad entry cannot stall the stream.
type Archiver struct {
	reader MessageReader
	pusher Pusher
	log    *zap.Logger
}

// NewArchiver returns an Archiver. log may be nil.
func NewArchiver(reader MessageReader, pusher Pusher, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{reader: reader, pusher: pusher, log: log}
}

// NewKafkaReader returns a consumer-group reader on topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Run consumes until ctx is cancelled and returns the number of entries pushed.
func (a *Archiver) Run(ctx context.Context) int {
	pushed := 0
	for {
		msg, err := a.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				a.log.Info("archive: stopped", zap.Int("pushed", pushed))
				return pushed
			}
			a.log.Warn("archive: kafka read error", zap.Error(err))
			continue
		}

		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		err = a.pusher.PushEntryJSON(pushCtx, msg.Value)
		cancel()
		if err != nil {
			a.log.Warn("archive: push failed",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			continue
		}
		pushed++
	}
}
