package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	httpapi "clinic/internal/http"
	"clinic/internal/notify"
	"clinic/internal/pricing"
	"clinic/internal/repository"
	"clinic/internal/seed"
	"clinic/internal/service"
	"clinic/internal/validation"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")
	serveCmd.Flags().BoolVar(&cfg.SeedDemo, "seed", cfg.SeedDemo, "load demo orders at startup")
	serveCmd.Flags().StringSliceVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Kafka brokers for order events; disabled when empty")
	serveCmd.Flags().StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic for order events")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	hub := notify.NewHub(logger, "clinic")
	sinks := []notify.Sink{notify.LogSink{Logger: logger}, hub}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer kp.Close()
		sinks = append(sinks, kp)
	}
	dispatcher := notify.NewDispatcher(logger, 0, sinks...)

	ordersSvc := service.NewOrderService(
		cat,
		pricing.NewEngine(cat, pricing.DefaultRules()),
		validation.NewValidator(cat),
		repository.NewMemoryStore(),
		repository.NewMemoryTx(),
		service.WithNotifier(dispatcher),
		service.WithLogger(logger),
	)
	if cfg.SeedDemo {
		if err := ordersSvc.Seed(ctx, seed.Orders(time.Now())); err != nil {
			return err
		}
	}

	// Background workers stop on their own context so queued events are
	// drained after the HTTP server has shut down.
	workCtx, cancelWork := context.WithCancel(context.Background())
	go hub.Run(workCtx)
	dispatcher.Start(workCtx)

	gin.SetMode(gin.ReleaseMode)
	srv := httpapi.NewServer(service.NewCatalogService(cat), ordersSvc, logger, httpapi.WithWebSocket(hub.HandleWebSocket))
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpServer.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancelWork()
		dispatcher.Wait()
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
	cancelWork()
	dispatcher.Wait()
	logger.Info("Server stopped")
	return nil
}
