package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Sink receives recorded entries.
type Sink interface {
	Emit(ctx context.Context, entry Entry)
}

// NoOpSink drops entries.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Entry) {}

// ChannelSink writes entries into a buffered channel.
type ChannelSink struct {
	entries chan Entry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		entries: make(chan Entry, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, entry Entry) {
	select {
	case s.entries <- entry:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Entries() <-chan Entry {
	return s.entries
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, entry Entry) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// LogSink echoes entries to a zap logger under the "AUDIT LOG" message.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(_ context.Context, entry Entry) {
	s.logger.Info("AUDIT LOG",
		zap.String("id", entry.ID),
		zap.Time("timestamp", entry.Timestamp),
		zap.String("user", entry.User),
		zap.String("role", entry.Role),
		zap.String("action", string(entry.Action)),
		zap.String("module", entry.Module),
		zap.Any("details", entry.Details),
	)
}

// Appender is the list-append half of session.Storage.
type Appender interface {
	Append(ctx context.Context, key string, value []byte) error
}

// Ranger is the list-read half of session.Storage.
type Ranger interface {
	Range(ctx context.Context, key string) ([][]byte, error)
}

// StorageSink appends JSON-encoded entries to a persisted list. Failures are
// logged and otherwise ignored.
type StorageSink struct {
	store  Appender
	key    string
	logger *zap.Logger
}

func NewStorageSink(store Appender, key string, logger *zap.Logger) *StorageSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StorageSink{store: store, key: key, logger: logger}
}

func (s *StorageSink) Emit(ctx context.Context, entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("audit entry encode failed", zap.Error(err))
		return
	}
	if err := s.store.Append(ctx, s.key, data); err != nil {
		s.logger.Warn("audit entry append failed",
			zap.String("key", s.key),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
	}
}

// ReadLog decodes the persisted list under key in insertion order.
func ReadLog(ctx context.Context, store Ranger, key string) ([]Entry, error) {
	items, err := store.Range(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(items))
	for i, item := range items {
		var e Entry
		if err := json.Unmarshal(item, &e); err != nil {
			return nil, fmt.Errorf("audit log item %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// MultiSink fans every entry out to each sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, entry Entry) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, entry)
		}
	}
}
