package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/api"
	"github.com/matic113/freelance-platform-sub003/internal/config"
	"github.com/matic113/freelance-platform-sub003/internal/db"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/events"
	"github.com/matic113/freelance-platform-sub003/internal/gateway"
	"github.com/matic113/freelance-platform-sub003/internal/jobs"
	"github.com/matic113/freelance-platform-sub003/internal/metrics"
	"github.com/matic113/freelance-platform-sub003/internal/repository"
	"github.com/matic113/freelance-platform-sub003/internal/service"
	"github.com/matic113/freelance-platform-sub003/internal/socket"
)

func serve(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := slog.Default()

	database, err := db.OpenDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	contractRepo := repository.NewSQLiteContractRepo(database)
	milestoneRepo := repository.NewSQLiteMilestoneRepo(database)
	paymentRepo := repository.NewSQLitePaymentRequestRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	// Live updates: local websocket rooms, optionally fanned out through redis.
	hub := socket.NewHub(log)
	go hub.Run(ctx)
	var live events.Publisher = socket.NewBroadcaster(hub)
	if cfg.Redis.URL != "" {
		rdb, err := events.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		relay := events.NewRedisRelay(rdb, cfg.Redis.Channel, live, log)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("redis relay stopped", "error", err)
			}
		}()
		live = relay
	}
	publisher := events.MultiPublisher{live, metrics.EventPublisher{}}

	observers := []service.UseCaseObserver{service.NewSlogUseCaseObserver(log), metrics.UseCaseObserver{}}
	policy := domain.LifecyclePolicy{
		AutoStartMilestones:       cfg.Lifecycle.AutoStartMilestones,
		RequireBalancedMilestones: cfg.Lifecycle.RequireBalancedMilestones,
	}

	var (
		gw      gateway.Gateway
		sandbox *gateway.Sandbox
		broker  *gateway.AMQPGateway
	)
	switch cfg.Gateway.Mode {
	case config.GatewaySandbox:
		sandbox = gateway.NewSandbox(cfg.Gateway.SandboxDelay, nil, log)
		gw = sandbox
	case config.GatewayAMQP:
		broker, err = gateway.NewAMQPGateway(cfg.Gateway.AMQPURL, cfg.Gateway.Queue, nil, log)
		if err != nil {
			return err
		}
		defer broker.Close()
		gw = broker
	}

	contracts := service.NewContractService(contractRepo, milestoneRepo, paymentRepo, uow, policy, publisher, observers...)
	milestones := service.NewMilestoneService(contractRepo, milestoneRepo, uow, policy, publisher, observers...)
	payments := service.NewPaymentService(contractRepo, milestoneRepo, paymentRepo, uow, gw, publisher, observers...)

	settle := service.SettlementHandler(payments)
	switch {
	case sandbox != nil:
		sandbox.SetHandler(settle)
		defer sandbox.Wait()
	case broker != nil:
		broker.SetHandler(settle)
		go func() {
			if err := broker.Consume(ctx); err != nil {
				log.Error("settlement consumer stopped", "error", err)
			}
		}()
	}

	if gw != nil && cfg.Jobs.PayoutSweep != "" {
		sched := jobs.NewScheduler(payments, cfg.Jobs.PayoutAge, log)
		if err := sched.Start(ctx, cfg.Jobs.PayoutSweep); err != nil {
			return err
		}
		defer sched.Stop()
	}

	watch := func(ctx context.Context, actor domain.Actor, contractID string) error {
		_, err := contracts.Summary(ctx, actor, contractID)
		return err
	}
	router := api.NewRouter(api.Deps{
		Contracts:      contracts,
		Milestones:     milestones,
		Payments:       payments,
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Live:           socket.NewHandler(ctx, hub, cfg.Auth.JWTSecret, watch).ServeWS,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "gateway", cfg.Gateway.Mode, "db", cfg.Database.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
