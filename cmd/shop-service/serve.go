package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/cart"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/checkout"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/config"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/db"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/dedup"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/events"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/gateway"
	httpapi "github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/http"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/middleware"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/order"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/payment"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/sequence"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger())
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return err
		}
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sqlDB, err := db.Open(openCtx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	pool, err := db.NewPool(openCtx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	carts := cart.NewPostgresRepository(pool)

	var gw gateway.Gateway
	if cfg.StripeSecretKey != "" {
		gw = gateway.NewStripe(gateway.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Timeout:       cfg.GatewayTimeout,
			BackendURL:    cfg.StripeAPIBase,
		})
	} else {
		logger.Printf("STRIPE_SECRET_KEY not set; gateway payments are disabled")
	}

	var pub checkout.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("dial rabbitmq: %w", err)
		}
		defer conn.Close()

		p, err := events.NewPublisher(conn, sequence.NewRepository(sqlDB), events.PublisherOptions{
			CorrelationID: middleware.GetCorrelationID,
		})
		if err != nil {
			return err
		}
		defer p.Close()
		pub = p
		logger.Printf("publishing events to exchange %s", events.EventsExchange)
	} else {
		logger.Printf("RABBITMQ_URL not set; domain events are disabled")
	}

	svc := checkout.NewService(checkout.Deps{
		Orders:    order.NewRepository(sqlDB),
		Payments:  payment.NewRepository(sqlDB),
		Cart:      carts,
		Gateway:   gw,
		Publisher: pub,
		Ledger:    dedup.NewRepository(sqlDB),
		Logger:    logger,
	})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Checkout:         svc,
			Cart:             carts,
			Logger:           logger,
			JWTSecret:        []byte(cfg.JWTSecret),
			CORSAllowOrigins: cfg.CORSAllowOrigins,
			RequestTimeout:   cfg.RequestTimeout,
			RequestLog:       cfg.LogRequests,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("shop-service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
