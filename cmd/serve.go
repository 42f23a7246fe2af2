package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/novinrelay/lead-relay/internal/admin"
	"github.com/novinrelay/lead-relay/internal/config"
	"github.com/novinrelay/lead-relay/internal/db"
	"github.com/novinrelay/lead-relay/internal/dedup"
	"github.com/novinrelay/lead-relay/internal/gateway"
	httpSrv "github.com/novinrelay/lead-relay/internal/http"
	"github.com/novinrelay/lead-relay/internal/logger"
	"github.com/novinrelay/lead-relay/internal/pipeline"
	"github.com/novinrelay/lead-relay/internal/repository"
)

// deliveryLog avoids handing the pipeline a typed-nil interface when MySQL is
// not configured.
func deliveryLog(mysqlDB *sqlx.DB) pipeline.DeliveryLog {
	if mysqlDB == nil {
		return nil
	}
	return repository.NewDeliveriesRepository(mysqlDB)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run webhook HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		defer logger.Sync()

		loc, err := time.LoadLocation(cfg.Dedup.Timezone)
		if err != nil {
			return fmt.Errorf("dedup timezone: %w", err)
		}

		var mysqlDB *sqlx.DB
		if cfg.MySQL.DSN != "" {
			mysqlDB, err = db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
				MaxOpenConns:    cfg.MySQL.MaxOpenConns,
				MaxIdleConns:    cfg.MySQL.MaxIdleConns,
				ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
				ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
				PingTimeout:     cfg.MySQL.PingTimeout,
			})
			if err != nil {
				return fmt.Errorf("mysql connect: %w", err)
			}
			defer mysqlDB.Close()
		}

		var redisClient *redis.Client
		var store dedup.Store
		switch cfg.Dedup.Store {
		case "memory":
			store = dedup.NewMemoryStore(loc, cfg.Dedup.Retention)
		default:
			redisClient, err = db.NewRedisClient(db.RedisOpts{
				Addr:        cfg.Redis.Addr,
				Password:    cfg.Redis.Password,
				DB:          cfg.Redis.DB,
				DialTimeout: cfg.Redis.DialTimeout,
			})
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = redisClient.Close() }()
			store = dedup.NewRedisStore(redisClient, loc, cfg.Dedup.Retention)
		}

		gw, err := gateway.NewClient(gateway.Config{
			BaseURL:     cfg.Gateway.BaseURL,
			APIKey:      cfg.Gateway.APIKey,
			Originator:  cfg.Gateway.Originator,
			Enabled:     cfg.Gateway.Enabled,
			Timeout:     cfg.Gateway.Timeout,
			MaxAttempts: cfg.Gateway.MaxAttempts,
			Backoff:     cfg.Gateway.Backoff,
			Breaker:     gateway.NewMicroBreaker(cfg.Gateway.Breaker.FailThreshold, cfg.Gateway.Breaker.OpenFor),
		})
		if err != nil {
			return fmt.Errorf("gateway client: %w", err)
		}

		var notifier admin.Notifier = admin.NoopNotifier{}
		if cfg.Telegram.Token != "" {
			notifier, err = admin.NewTelegramNotifier(cfg.Telegram.Token)
			if err != nil {
				return fmt.Errorf("telegram bot: %w", err)
			}
		}
		admins := make([]admin.Identity, 0, len(cfg.Telegram.Admins))
		for _, a := range cfg.Telegram.Admins {
			admins = append(admins, admin.Identity{ID: a.ID, Name: a.Name})
		}
		registry := admin.NewRegistry(
			admin.Identity{ID: cfg.Telegram.OwnerID, Name: "owner"},
			admins,
			notifier,
			cfg.Telegram.NotifyTimeout,
		)

		pipe := pipeline.New(pipeline.Config{
			PatternCode:          cfg.Gateway.PatternCode,
			DefaultCodeText:      cfg.SMS.DefaultCodeText,
			ExtractFromMessages:  cfg.Pipeline.ExtractFromMessages,
			ExtractFromAutoforms: cfg.Pipeline.ExtractFromAutoforms,
			SendTimeout:          15 * time.Second,
		}, store, gw, registry, deliveryLog(mysqlDB), logger.Log)

		server := httpSrv.NewServer(cfg, pipe, mysqlDB, redisClient)

		errCh := make(chan error, 1)
		go func() {
			log.Printf("starting http on %s", cfg.HTTP.Addr)
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Printf("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
