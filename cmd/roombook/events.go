package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"roombook/internal/events"
	"roombook/pkg/config"
	"roombook/pkg/kafka"
	kafka_config "roombook/pkg/kafka/config"
	kafkamiddleware "roombook/pkg/kafka/middleware"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with the reservation event stream",
	}
	cmd.AddCommand(newEventsTailCmd())
	return cmd
}

func newEventsTailCmd() *cobra.Command {
	var topic, group string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print reservation events as JSON lines until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg := config.Load(serviceName + "-events")
			kcfg, err := kafka_config.Load()
			if err != nil {
				return err
			}
			if group != "" {
				kcfg.ConsumerGroupID = group
			}
			if topic == "" {
				topic = cfg.KafkaReservationsTopic
			}
			kcfg.LogConfiguration(cfg.Log)

			consumer, err := kafka.NewConsumer(kcfg, topic, cfg.KafkaDLQTopic, events.TailHandler(cmd.OutOrStdout()), cfg.Log)
			if err != nil {
				return err
			}
			defer func() {
				if err := consumer.Close(); err != nil {
					cfg.Log.Error("Failed to close consumer", "error", err)
				}
			}()
			if kcfg.EnableMiddleware {
				consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))
			}

			cfg.Log.Info("Tailing reservation events", "topic", topic, "group", kcfg.ConsumerGroupID)
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "topic to read (default KAFKA_RESERVATIONS_TOPIC)")
	cmd.Flags().StringVar(&group, "group", "", "consumer group id (default KAFKA_CONSUMER_GROUP_ID)")
	return cmd
}
