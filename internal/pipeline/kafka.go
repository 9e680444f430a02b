package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/gcodelens/gcodelens/internal/config"
)

type kafkaZapLogger struct {
	log *zap.Logger
}

func (l kafkaZapLogger) Printf(msg string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(msg, args...))
}

type kafkaZapErrorLogger struct {
	log *zap.Logger
}

func (l kafkaZapErrorLogger) Printf(msg string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(msg, args...))
}

// KafkaSource is a LineSource over a Kafka topic carrying G-code text, for
// profiling a printer's streamed output live. Each message payload holds one
// or more lines; they are replayed through the fold in payload order.
// Context cancellation reads as end-of-stream so the run finalizes exactly
// as it does at file EOF.
type KafkaSource struct {
	reader  *kafka.Reader
	cfg     config.KafkaConfig
	logger  *zap.Logger
	pending []string
}

// NewKafkaSource creates and configures a Kafka-backed line source.
func NewKafkaSource(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		logger.Error("Kafka configuration validation failed",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
			zap.String("group_id", cfg.GroupID),
		)
		return nil, ErrInvalidKafkaConfig
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		Logger:      kafkaZapLogger{logger.Named("kafka-reader").WithOptions(zap.AddCallerSkip(1))},
		ErrorLogger: kafkaZapErrorLogger{logger.Named("kafka-reader-error").WithOptions(zap.AddCallerSkip(1))},
	}
	r := kafka.NewReader(readerCfg)

	logger.Info("Kafka line source created",
		zap.String("topic", cfg.Topic),
		zap.String("group_id", cfg.GroupID),
		zap.Strings("brokers", cfg.Brokers),
		zap.Duration("commit_interval", readerCfg.CommitInterval),
		zap.Duration("max_wait", readerCfg.MaxWait),
	)

	return &KafkaSource{
		reader: r,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Next returns the next line, fetching further messages as needed.
func (s *KafkaSource) Next(ctx context.Context) (string, error) {
	for len(s.pending) == 0 {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Debug("Context cancelled, ending Kafka stream", zap.Error(err))
				return "", io.EOF
			}
			s.logger.Error("Error fetching message from Kafka", zap.Error(err))
			return "", fmt.Errorf("%w: %w", ErrKafkaFetchFailed, err)
		}
		s.pending = splitLines(m.Value)
	}

	line := s.pending[0]
	s.pending = s.pending[1:]
	return line, nil
}

// Close shuts the underlying reader down.
func (s *KafkaSource) Close() error {
	s.logger.Debug("Closing Kafka reader...")
	if err := s.reader.Close(); err != nil {
		s.logger.Error("Failed to close Kafka reader cleanly", zap.Error(err))
		return err
	}
	s.logger.Debug("Kafka reader closed.")
	return nil
}

// splitLines breaks a message payload into lines, tolerating CRLF and a
// trailing newline.
func splitLines(payload []byte) []string {
	if len(payload) == 0 {
		return nil
	}
	lines := strings.Split(string(payload), "\n")
	if n := len(lines); lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
