package pipeline

import "errors"

var (
	ErrOpeningInput       = errors.New("failed to open input file")
	ErrReadingInput       = errors.New("failed to read input stream")
	ErrInvalidKafkaConfig = errors.New("invalid Kafka configuration provided")
	ErrKafkaFetchFailed   = errors.New("failed to fetch message from Kafka")
)
