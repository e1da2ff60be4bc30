package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TokenTimes/dropsd/internal/allocation"
	s3blob "github.com/TokenTimes/dropsd/internal/blob/s3"
	"github.com/TokenTimes/dropsd/internal/config"
	"github.com/TokenTimes/dropsd/internal/domain"
	"github.com/TokenTimes/dropsd/internal/export"
	"github.com/TokenTimes/dropsd/internal/notify"
	"github.com/TokenTimes/dropsd/internal/platform/copypools"
	"github.com/TokenTimes/dropsd/internal/refresh"
	"github.com/TokenTimes/dropsd/internal/selection"
	"github.com/TokenTimes/dropsd/internal/service"
	"github.com/TokenTimes/dropsd/internal/sink"
	fileStore "github.com/TokenTimes/dropsd/internal/store/file"
	memoryStore "github.com/TokenTimes/dropsd/internal/store/memory"
	redisStore "github.com/TokenTimes/dropsd/internal/store/redis"
	"github.com/TokenTimes/dropsd/internal/wallet"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	KV       domain.KVStore
	Refresh  *refresh.Service
	Desk     *service.Desk
	Pipeline *export.Pipeline
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- State storage ---
	var kv domain.KVStore
	switch cfg.Storage.Backend {
	case "redis":
		redisClient, err := redisStore.New(ctx, redisStore.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		kv = redisStore.NewKV(redisClient)
	case "memory":
		kv = memoryStore.NewKV()
	default:
		fileKV, err := fileStore.NewKV(cfg.Storage.Path)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: file store: %w", err)
		}
		kv = fileKV
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Components ---
	alloc := allocation.NewStore(kv, logger)
	sel := selection.NewManager(kv, alloc, logger)

	fetcher := copypools.New(cfg.Source.BaseURL)
	refreshSvc := refresh.NewService(fetcher, cfg.RefreshInterval(), logger)

	// --- Wallet (optional) ---
	var balance domain.BalanceProvider
	if cfg.Wallet.Address != "" {
		w, err := wallet.New(ctx, cfg.Wallet.RPCURL, cfg.Wallet.TokenAddress, cfg.Wallet.TokenDecimals, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}
		closers = append(closers, w.Close)
		balance = w
	}

	// --- Export sinks ---
	sinks := []domain.ExportSink{sink.NewLogSink(logger)}
	if cfg.Export.OutputDir != "" {
		sinks = append(sinks, sink.NewFileSink(cfg.Export.OutputDir))
	}
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		sinks = append(sinks, sink.NewS3Sink(s3blob.NewWriter(s3Client)))
	}

	var target domain.ExportSink = sinks[0]
	if len(sinks) > 1 {
		target = sink.NewMulti(sinks...)
	}

	pipeline := export.NewPipeline(export.SimulatedStep(cfg.StepDelay()), target, logger)

	desk := service.NewDesk(alloc, sel, refreshSvc, pipeline, balance, notifier, cfg.Wallet.Address, logger)

	return &Dependencies{
		KV:       kv,
		Refresh:  refreshSvc,
		Desk:     desk,
		Pipeline: pipeline,
		Notifier: notifier,
	}, cleanup, nil
}
