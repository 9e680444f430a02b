package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/gcodelens/gcodelens/internal/config"
)

func TestNewKafkaSourceValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.KafkaConfig
	}{
		{"no brokers", config.KafkaConfig{Topic: "t", GroupID: "g"}},
		{"no topic", config.KafkaConfig{Brokers: []string{"localhost:9092"}, GroupID: "g"}},
		{"no group", config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewKafkaSource(tt.cfg, zap.NewNop())
			assert.ErrorIs(t, err, ErrInvalidKafkaConfig)
		})
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    []string
	}{
		{"empty", "", nil},
		{"single line no newline", "G1 X10", []string{"G1 X10"}},
		{"trailing newline dropped", "G1 X10\nG1 X20\n", []string{"G1 X10", "G1 X20"}},
		{"crlf", "G1 X10\r\nG1 X20\r\n", []string{"G1 X10", "G1 X20"}},
		{"interior blank kept", "G1 X10\n\nG1 X20", []string{"G1 X10", "", "G1 X20"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, splitLines([]byte(tt.payload)))
		})
	}
}
