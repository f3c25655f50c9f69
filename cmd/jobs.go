package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/factory"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/service"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/config"
)

var (
	workerMode bool
	jobsLogger = factory.NewModuleLogger("jobs")
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run audit trail related commands",
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit records older than the configured retention",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"audit_prune",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.AuditPruneInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunAuditPruneBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditPruneCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.PaymentService, ctx context.Context) error,
) {
	app := mustCreateApplication()
	defer app.cleanup()

	if workerMode {
		runWorker(name, intervalResolver(app.cfg), app.paymentService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(app.paymentService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	paymentService *service.PaymentService,
	fn func(s *service.PaymentService, ctx context.Context) error,
) {
	logger := jobsLogger.WithField("job", name)
	if interval <= 0 {
		logger.Fatal("invalid worker interval")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.WithField("interval", interval.String()).Info("worker_started")
	runJob(name, func() error { return fn(paymentService, ctx) })

	for {
		select {
		case <-ctx.Done():
			logger.Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(paymentService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	logger := jobsLogger.WithFields(logrus.Fields{
		"job":     name,
		"latency": time.Since(start).String(),
	})
	if err != nil {
		logger.WithError(err).Error("job_failed")
		return
	}
	logger.Info("job_completed")
}
