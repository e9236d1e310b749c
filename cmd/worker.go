package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/frahmantamala/expense-tracker/internal/notification"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that run outside the HTTP server`,
}

var notificationWorkerCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Deliver queued notifications",
	Long:  `Consume notification messages from the AMQP queue and deliver them over SMTP`,
	Run: func(cmd *cobra.Command, args []string) {
		startNotificationWorker()
	},
}

var (
	workerConsumers int
	workerDryRun    bool
)

func startNotificationWorker() {
	cfg, err := loadConfigAndLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg := logger.Component("notification-worker")

	amqpCfg := cfg.Notification.AMQP
	if amqpCfg.URL == "" {
		lg.Error("notification worker needs notification.amqp.url")
		os.Exit(1)
	}

	var delivery notification.Sender = notification.NewSMTPSender(cfg.Notification.SMTP, cfg.Notification.From)
	if workerDryRun || cfg.Notification.SMTP.Host == "" {
		delivery = notification.NewLogSender(lg)
	}

	consumers := workerConsumers
	if consumers <= 0 {
		consumers = 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("starting notification worker", "consumers", consumers, "queue", amqpCfg.Queue, "dry_run", workerDryRun)

	// one connection per consumer so a broken channel only stops its own loop
	var connectErr error
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < consumers; i++ {
		client, err := notification.NewAMQPClient(amqpCfg.URL, amqpCfg.Exchange, amqpCfg.Queue, lg.With("consumer", i))
		if err != nil {
			connectErr = err
			stop()
			break
		}
		g.Go(func() error {
			defer client.Close()
			return client.Consume(gctx, delivery)
		})
	}

	err = g.Wait()
	if connectErr != nil {
		lg.Error("failed to connect notification broker", "error", connectErr)
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("notification worker stopped", "error", err)
		os.Exit(1)
	}
	lg.Info("notification worker shutdown complete")
}

func init() {
	notificationWorkerCmd.Flags().IntVar(&workerConsumers, "consumers", 1, "number of queue consumers")
	notificationWorkerCmd.Flags().BoolVar(&workerDryRun, "dry-run", false, "log messages instead of sending mail")

	workerCmd.AddCommand(notificationWorkerCmd)
}
