package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
)

var (
	file    = flag.String("file", "", "G-code file to replay")
	brokers = flag.String("brokers", "localhost:9092", "Comma-separated Kafka broker addresses")
	topic   = flag.String("topic", "gcode-lines", "Topic to produce lines to")
	rate    = flag.Int("rate", 1000, "Lines produced per second")
)

// Replays a G-code file line by line onto a Kafka topic so a profiler
// running with -follow has something to consume.
func main() {
	flag.Parse()
	if *file == "" {
		log.Fatal("-file is required")
	}
	if *rate < 1 {
		log.Fatal("-rate must be at least 1")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Error opening %s: %v", *file, err)
	}
	defer f.Close()

	writer := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:    *topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Fatalf("Error closing kafka writer: %v", err)
		}
	}()
	log.Printf("Replaying %s to topic %s on %s at %d lines/s", *file, *topic, *brokers, *rate)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		log.Println("Shutdown signal received, stopping replay...")
		cancel()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var produced int64
	for {
		select {
		case <-ticker.C:
			batch, done := nextBatch(scanner, *rate)
			if len(batch) > 0 {
				if err := writer.WriteMessages(ctx, batch...); err != nil {
					if ctx.Err() != nil { // Check if context was cancelled (shutdown)
						log.Println("Context cancelled, exiting replay loop.")
						return
					}
					log.Printf("Error writing batch: %v", err)
					continue
				}
				produced += int64(len(batch))
				log.Printf("Produced %d lines (total %d)", len(batch), produced)
			}
			if done {
				if err := scanner.Err(); err != nil {
					log.Printf("Error reading %s: %v", *file, err)
				}
				log.Printf("Replay finished: %d lines produced.", produced)
				return
			}

		case <-ctx.Done():
			log.Println("Replay loop stopped.")
			return
		}
	}
}

// nextBatch reads up to n lines into one message batch; done reports end
// of file.
func nextBatch(scanner *bufio.Scanner, n int) ([]kafka.Message, bool) {
	batch := make([]kafka.Message, 0, n)
	for len(batch) < n {
		if !scanner.Scan() {
			return batch, true
		}
		batch = append(batch, kafka.Message{Value: []byte(scanner.Text())})
	}
	return batch, false
}
