package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gpucost/gpucost/pkg/apiserver"
	"github.com/gpucost/gpucost/pkg/config"
	"github.com/gpucost/gpucost/pkg/eventbus"
	"github.com/gpucost/gpucost/pkg/metrics"
	"github.com/gpucost/gpucost/pkg/model"
	"github.com/gpucost/gpucost/pkg/modelcost"
	"github.com/gpucost/gpucost/pkg/pricing"
	"github.com/gpucost/gpucost/pkg/quota"
	"github.com/gpucost/gpucost/pkg/store/memory"
	redisclient "github.com/gpucost/gpucost/pkg/store/redis"
	"github.com/gpucost/gpucost/pkg/tracker"
)

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "api-server",
		Short:        "Serve the GPU cost tracker API and metrics",
		RunE:         runServer,
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the config file (default searches /etc/gpucost and the working directory)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := pricing.NewTableFromConfig(cfg.Pricing)
	if err != nil {
		return fmt.Errorf("build pricing table: %w", err)
	}
	inventory, err := quota.NewInventoryLedgerFromConfig(cfg.Inventory, logger)
	if err != nil {
		return fmt.Errorf("build inventory ledger: %w", err)
	}
	budget, err := quota.NewBudgetLedger(
		decimal.NewFromFloat(cfg.Budget.Monthly),
		decimal.NewFromFloat(cfg.Budget.InitialSpend),
	)
	if err != nil {
		return fmt.Errorf("build budget ledger: %w", err)
	}

	allocations := memory.NewAllocationStore()
	admission, err := quota.NewAdmissionController(pricing.NewEstimator(table), inventory, budget, allocations,
		quota.WithReservationFraction(cfg.Admission.ReservationFraction),
		quota.WithDefaultResourceType(model.ResourceType(cfg.Admission.DefaultResourceType)),
		quota.WithLogger(logger.Named("admission")),
	)
	if err != nil {
		return fmt.Errorf("build admission controller: %w", err)
	}

	var publisher eventbus.Publisher = eventbus.NopPublisher{}
	if cfg.Redis.Enabled {
		redis, err := redisclient.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redis.Close()
		publisher = eventbus.NewBus(redis.Client(), cfg.Redis.ChannelPrefix)
		logger.Info("publishing events to redis", zap.Strings("addresses", cfg.Redis.Addresses))
	}

	projector := metrics.NewProjector(cfg.Projection.Factor, time.Now)
	prometheus.MustRegister(metrics.NewLedgerCollector(admission, projector))

	svc := tracker.NewService(tracker.Dependencies{
		Admission:   admission,
		Allocations: allocations,
		Projector:   projector,
		Models:      modelcost.NewCatalog(cfg.ModelCosts),
		Publisher:   publisher,
		RecentLimit: cfg.Registry.RecentLimit,
		Logger:      logger.Named("tracker"),
	})
	server := apiserver.NewServer(svc, cfg, logger.Named("http"))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ReadTimeout * 2,
	}

	errCh := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		logger.Info("Starting "+name, zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s: %w", name, err)
		}
	}
	go serve("API server", httpServer)
	go serve("metrics server", metricsServer)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error("Server error", zap.Error(runErr))
	}

	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server forced to shutdown", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server forced to shutdown", zap.Error(err))
	}
	return runErr
}
