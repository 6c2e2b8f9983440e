package app

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/akarpov/talknotes/internal/domain"
	"github.com/akarpov/talknotes/internal/infra/config"
	"github.com/akarpov/talknotes/internal/infra/queue"
	filestore "github.com/akarpov/talknotes/internal/infra/store/file"
	recstore "github.com/akarpov/talknotes/internal/infra/store/recording"
	"github.com/akarpov/talknotes/internal/pipeline"
	"github.com/akarpov/talknotes/internal/sequencer"
	"github.com/akarpov/talknotes/internal/summarize"
	"github.com/akarpov/talknotes/internal/transcribe"
	"github.com/akarpov/talknotes/internal/transport"
	"github.com/akarpov/talknotes/internal/usecase"
	"github.com/akarpov/talknotes/internal/watcher"
	mio "github.com/akarpov/talknotes/pkg/mio"
	natsq "github.com/akarpov/talknotes/pkg/natsq"
	rediscli "github.com/akarpov/talknotes/pkg/rediscli"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const defaultCfgPath = "./configs/local.yaml"

type Router interface {
	MountRoutes(*http.ServeMux) *http.ServeMux
}

// Usecase is the full orchestrator surface: transport operations plus the
// pipeline stage runner.
type Usecase interface {
	transport.Usecase
	pipeline.Runner
}

// AudioStore combines the usecase file operations with the cleanup hook
// the pipeline maintenance loop needs.
type AudioStore interface {
	usecase.FileStore
	pipeline.FileCleaner
}

type Pipeline interface {
	Run(ctx context.Context) error
	Stop(ctx context.Context)
	StartCleanup(ctx context.Context)
}

type Inbox interface {
	Start(ctx context.Context) error
	Stop() error
}

type dependencyInjector struct {
	cfg    *config.Config
	logger *slog.Logger

	redis    *redis.Client
	recStore usecase.RecordingStore

	fileStore AudioStore

	natsConn *nats.Conn
	js       nats.JetStreamContext
	queue    usecase.Queue

	transcriber transcribe.Transcriber
	summarizer  summarize.Summarizer

	usecase Usecase

	poller   transport.Subscriber
	seq      *sequencer.Sequencer
	player   *sequencer.Player
	handler  transport.Handler
	router   Router
	pipeline Pipeline
	inbox    Inbox
	inboxSet bool
}

func newDI() *dependencyInjector {
	return &dependencyInjector{}
}

func (di *dependencyInjector) Config() *config.Config {
	if di.cfg == nil {
		path := os.Getenv("TALKNOTES_CONFIG")
		if path == "" {
			path = defaultCfgPath
		}
		di.cfg = config.MustLoad(path)
	}

	return di.cfg
}

func (di *dependencyInjector) Logger() *slog.Logger {
	if di.logger == nil {
		di.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	slog.SetDefault(di.logger)
	return di.logger
}

func (di *dependencyInjector) RedisClient(ctx context.Context) *redis.Client {
	if di.redis == nil {
		cfg := di.Config().Redis
		client, err := rediscli.NewClient(rediscli.Config{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			log.Fatalf("redis client: %+v", err)
		}

		di.redis = client
		di.Logger().Info("connected to redis", slog.String("addr", cfg.Addr))
	}
	return di.redis
}

func (di *dependencyInjector) RecordingStore(ctx context.Context) usecase.RecordingStore {
	if di.recStore == nil {
		if di.Config().Redis.Addr == "" {
			di.recStore = recstore.NewMemoryStore()
			di.Logger().Info("using in-memory recording store")
		} else {
			di.recStore = recstore.NewRedisStore(di.RedisClient(ctx))
		}
	}
	return di.recStore
}

func (di *dependencyInjector) FileStore(ctx context.Context) AudioStore {
	if di.fileStore == nil {
		cfg := di.Config()

		if cfg.MinIO.Endpoint == "" {
			local, err := filestore.NewLocalStore(cfg.BaseDir)
			if err != nil {
				log.Fatalf("file store local: %+v", err)
			}
			di.fileStore = local
			di.Logger().Info("initialized local audio store", slog.String("base_dir", cfg.BaseDir))
		} else {
			remote, err := filestore.NewMinIOStore(ctx, mio.Config{
				Endpoint:        cfg.MinIO.Endpoint,
				AccessKeyID:     cfg.MinIO.AccessKeyID,
				SecretAccessKey: cfg.MinIO.SecretAccessKey,
				UseSSL:          cfg.MinIO.UseSSL,
				Bucket:          cfg.MinIO.Bucket,
				BasePath:        cfg.BaseDir,
				Retry: mio.RetryConfig{
					MaxRetries:      cfg.MinIO.MaxRetries,
					InitialInterval: cfg.MinIO.RetryInitialInterval,
					MaxInterval:     cfg.MinIO.RetryMaxInterval,
				},
			})
			if err != nil {
				log.Fatalf("file store minio: %+v", err)
			}
			di.fileStore = remote
			di.Logger().Info(
				"initialized MinIO audio store",
				slog.String("endpoint", cfg.MinIO.Endpoint),
				slog.String("bucket", cfg.MinIO.Bucket),
			)
		}
	}

	return di.fileStore
}

func (di *dependencyInjector) NATSConn(ctx context.Context) *nats.Conn {
	if di.natsConn == nil {
		cfg := di.Config()
		nc, err := natsq.NewConnect(cfg.NATS.URL, natsq.Config{
			Name:          cfg.NATS.QueueName,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
		})
		if err != nil {
			log.Fatalf("NATS connect: %+v", err)
		}
		di.natsConn = nc
	}
	return di.natsConn
}

func (di *dependencyInjector) JetStream(ctx context.Context) nats.JetStreamContext {
	if di.js == nil {
		js, err := natsq.NewJetStream(di.NATSConn(ctx), &nats.StreamConfig{
			Name:     pipeline.StreamName,
			Subjects: []string{di.Config().NATS.Subject},
			Storage:  nats.FileStorage,
			Replicas: 1,
			MaxAge:   24 * time.Hour,
		})
		if err != nil {
			log.Fatalf("DI JetStream: %+v", err)
		}

		di.js = js
	}
	return di.js
}

func (di *dependencyInjector) Queue(ctx context.Context) usecase.Queue {
	if di.queue == nil {
		di.queue = queue.New(di.JetStream(ctx), di.Config().NATS.Subject)
	}
	return di.queue
}

func (di *dependencyInjector) Transcriber(ctx context.Context) transcribe.Transcriber {
	if di.transcriber == nil {
		cfg := di.Config().AssemblyAI
		opts := []transcribe.Option{}
		if cfg.PollInterval > 0 {
			opts = append(opts, transcribe.WithPollInterval(cfg.PollInterval))
		}
		di.transcriber = transcribe.NewAssemblyAI(cfg.APIKey, opts...)
	}
	return di.transcriber
}

func (di *dependencyInjector) Summarizer(ctx context.Context) summarize.Summarizer {
	if di.summarizer == nil {
		cfg := di.Config().Gemini
		if len(cfg.APIKeys) == 0 {
			di.summarizer = summarize.NewHeuristic()
			di.Logger().Info("using heuristic summarizer")
		} else {
			g, err := summarize.NewGemini(cfg.Model, cfg.APIKeys)
			if err != nil {
				log.Fatalf("gemini summarizer: %+v", err)
			}
			di.summarizer = g
		}
	}
	return di.summarizer
}

func (di *dependencyInjector) Usecase(ctx context.Context) Usecase {
	if di.usecase == nil {
		di.usecase = usecase.New(
			di.RecordingStore(ctx),
			di.FileStore(ctx),
			di.Queue(ctx),
			di.Transcriber(ctx),
			di.Summarizer(ctx),
		)
	}

	return di.usecase
}

func (di *dependencyInjector) Poller(ctx context.Context) transport.Subscriber {
	if di.poller == nil {
		di.poller = sequencer.NewPoller(
			statusObserver{di.Usecase(ctx)},
			di.Config().PollInterval,
		)
	}
	return di.poller
}

func (di *dependencyInjector) Sequencer(ctx context.Context) *sequencer.Sequencer {
	if di.seq == nil {
		reveal := di.Config().Reveal
		di.seq = sequencer.New(sequencer.Timing{
			CharInterval: reveal.CharInterval,
			ItemDelay:    reveal.ItemDelay,
			GroupPause:   reveal.GroupPause,
		})
	}
	return di.seq
}

func (di *dependencyInjector) Player(ctx context.Context) *sequencer.Player {
	if di.player == nil {
		di.player = sequencer.NewPlayer(nil)
	}
	return di.player
}

func (di *dependencyInjector) Handler(ctx context.Context) transport.Handler {
	if di.handler == nil {
		di.handler = transport.NewHandler(
			di.Config().MaxUploadBytesMb,
			di.Usecase(ctx),
			di.Poller(ctx),
			di.Sequencer(ctx),
			di.Player(ctx),
		)
	}

	return di.handler
}

func (di *dependencyInjector) Router(ctx context.Context) Router {
	if di.router == nil {
		di.router = transport.NewRouter(di.Handler(ctx))
	}

	return di.router
}

func (di *dependencyInjector) Pipeline(ctx context.Context) Pipeline {
	if di.pipeline == nil {
		cfg := di.Config()
		di.pipeline = pipeline.New(
			di.JetStream(ctx),
			cfg.NATS.Subject,
			cfg.Workers,
			di.Usecase(ctx),
			cfg.RunTimeout,
			cfg.CleanupInterval,
			cfg.AudioRetention,
			di.FileStore(ctx),
			di.RecordingStore(ctx),
		)
	}
	return di.pipeline
}

func (di *dependencyInjector) Inbox(ctx context.Context) Inbox {
	if !di.inboxSet {
		di.inboxSet = true
		cfg := di.Config()
		if cfg.InboxDir == "" {
			return nil
		}
		in, err := watcher.New(cfg.InboxDir, di.Usecase(ctx), cfg.Workers)
		if err != nil {
			log.Fatalf("inbox watcher: %+v", err)
		}
		di.inbox = in
	}
	return di.inbox
}

// statusObserver adapts the usecase projector to the sequencer's observer
// contract.
type statusObserver struct {
	uc Usecase
}

func (o statusObserver) Observe(ctx context.Context, recordingID string) (domain.StatusSnapshot, error) {
	return o.uc.GetStatus(ctx, recordingID)
}
