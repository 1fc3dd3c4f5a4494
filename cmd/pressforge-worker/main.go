package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/pressforge/pressforge/pkg/ai"
	"github.com/pressforge/pressforge/pkg/cmd"
	"github.com/pressforge/pressforge/pkg/generator"
	"github.com/pressforge/pressforge/pkg/hosting"
	"github.com/pressforge/pressforge/pkg/log"
	"github.com/pressforge/pressforge/pkg/queue"
	"github.com/pressforge/pressforge/pkg/seo"
	"github.com/pressforge/pressforge/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "pressforge-worker",
		EnableShellCompletion: true,
		Usage:                 "Execute queued page-generation tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker addresses (required when event-bus is kafka)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:     "redis-url",
				Usage:    "Redis address for the task queue (host:port)",
				Required: true,
				Sources:  cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:     "text-api-key",
				Usage:    "API key for the text-generation provider",
				Required: true,
				Sources:  cli.EnvVars("TEXT_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "text-base-url",
				Usage:   "Base URL of the OpenAI-compatible text endpoint",
				Sources: cli.EnvVars("TEXT_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "text-model",
				Usage:   "Model for outline, content, and rewrite calls",
				Value:   "gpt-4o",
				Sources: cli.EnvVars("TEXT_MODEL"),
			},
			&cli.StringFlag{
				Name:    "image-api-key",
				Usage:   "API key for the image-generation provider; empty disables image generation",
				Sources: cli.EnvVars("IMAGE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "image-model",
				Usage:   "Model for image generation",
				Value:   "dall-e-3",
				Sources: cli.EnvVars("IMAGE_MODEL"),
			},
			&cli.StringFlag{
				Name:    "wordpress-url",
				Usage:   "WordPress site URL for media hosting; empty disables the tier",
				Sources: cli.EnvVars("WORDPRESS_URL"),
			},
			&cli.StringFlag{
				Name:    "wordpress-user",
				Usage:   "WordPress username for media uploads",
				Sources: cli.EnvVars("WORDPRESS_USER"),
			},
			&cli.StringFlag{
				Name:    "wordpress-password",
				Usage:   "WordPress application password for media uploads",
				Sources: cli.EnvVars("WORDPRESS_APP_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "image-store-path",
				Usage:   "Local directory for the image object store; empty disables the tier",
				Sources: cli.EnvVars("IMAGE_STORE_PATH"),
			},
			&cli.StringFlag{
				Name:    "image-store-url",
				Usage:   "Public base URL where the image store directory is served",
				Sources: cli.EnvVars("IMAGE_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("pressforge-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Pressforge Worker")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			taskQueue, err := queue.NewRedisQueue(ctx, queue.Config{
				Addr: command.String("redis-url"),
			}, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := taskQueue.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close task queue", "error", err)
				}
			}()

			textClient := ai.NewChatClient(ai.Config{
				BaseURL: command.String("text-base-url"),
				APIKey:  command.String("text-api-key"),
				Model:   command.String("text-model"),
			})

			textService, err := ai.NewTextService(textClient)
			if err != nil {
				return err
			}

			opts := generator.Options{}

			if command.String("image-api-key") != "" {
				opts.Images = ai.NewImageClient(ai.Config{
					BaseURL: command.String("text-base-url"),
					APIKey:  command.String("image-api-key"),
					Model:   command.String("image-model"),
				}, "")
			}

			if command.String("wordpress-url") != "" {
				opts.MediaHost = hosting.NewWordPressMediaHost(hosting.WordPressConfig{
					SiteURL:     command.String("wordpress-url"),
					Username:    command.String("wordpress-user"),
					AppPassword: command.String("wordpress-password"),
					Timeout:     60 * time.Second,
				})
			}

			if command.String("image-store-path") != "" {
				store, err := hosting.NewFileObjectStore(
					command.String("image-store-path"),
					command.String("image-store-url"),
				)
				if err != nil {
					return err
				}

				opts.ObjectStore = store
			}

			orchestrator := generator.NewOrchestrator(textService, seo.NewScorer(), opts, logger)
			manager := workflow.NewManager(persistence, eventBus, taskQueue, logger)

			worker := NewWorker(workerID, manager, orchestrator, taskQueue, eventBus, logger)

			return worker.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
