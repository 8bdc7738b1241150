package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-tutorchat-be/internal/config"
	"ai-tutorchat-be/pkg/events"
	pktNats "ai-tutorchat-be/pkg/nats"
)

// The worker tails session lifecycle events off NATS. Right now it only
// writes an audit line per event; reminder delivery hangs off this consumer.
func main() {
	cfg := config.Load()

	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("Unable to connect to NATS: %v", err)
	}
	defer sub.Close()

	handler := func(ctx context.Context, event events.Event) error {
		log.Printf("[EVENT] %s payload=%v", event.EventType(), event.Payload())
		return nil
	}

	if err := sub.Subscribe("events.>", "tutorchat-worker", handler); err != nil {
		log.Fatalf("Unable to subscribe: %v", err)
	}

	log.Println("Worker is consuming session events. Ctrl+C to stop.")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("Worker shutting down.")
}
