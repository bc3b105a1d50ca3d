package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/segmentio/kafka-go"

	"github.com/Skotchmaster/accounts_service/internal/config"
	"github.com/Skotchmaster/accounts_service/internal/events"
	"github.com/Skotchmaster/accounts_service/internal/mailer"
	"github.com/Skotchmaster/accounts_service/pkg/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required for the mail worker")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   events.TopicAccountEvents,
		GroupID: "mailworker",
	})
	defer reader.Close()

	worker := &mailer.Worker{
		Reader: reader,
		Mailer: &mailer.Mailer{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom},
		Origin: config.EnvDefault("PUBLIC_ORIGIN", "http://localhost:8080"),
	}

	ctx, cancel := context.WithCancel(logging.IntoContext(context.Background(), logger))

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt)
		<-stop
		cancel()
	}()

	if err := worker.Run(ctx); err != nil {
		log.Fatalf("mail worker stopped: %v", err)
	}
}
