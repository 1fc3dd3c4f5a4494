package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/pressforge/pressforge/pkg/channels/gochannel"
	"github.com/pressforge/pressforge/pkg/channels/kafka"
	"github.com/pressforge/pressforge/pkg/eventbus"
)

// NewEventBus creates the event bus for the given provider. "kafka" wires the
// Kafka-backed channel over the comma-separated broker list; "gochannel" (the
// default) keeps events in-process.
func NewEventBus(provider, kafkaBrokers string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "pressforge", strings.Split(kafkaBrokers, ","))
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create in-process pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("unsupported event bus provider: " + provider)
	}
}
