package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wholesalehub/platform/modules/billing"
	"github.com/wholesalehub/platform/modules/broadcast"
	"github.com/wholesalehub/platform/modules/catalog"
	"github.com/wholesalehub/platform/modules/customer"
	"github.com/wholesalehub/platform/modules/team"
	"github.com/wholesalehub/platform/pkg/auth"
	"github.com/wholesalehub/platform/pkg/config"
	"github.com/wholesalehub/platform/pkg/email"
	"github.com/wholesalehub/platform/pkg/file"
	"github.com/wholesalehub/platform/pkg/httpserver"
	"github.com/wholesalehub/platform/pkg/limits"
	"github.com/wholesalehub/platform/pkg/logger"
	"github.com/wholesalehub/platform/pkg/pg"
	"github.com/wholesalehub/platform/pkg/redis"
	"github.com/wholesalehub/platform/pkg/requestid"
	"github.com/wholesalehub/platform/pkg/respcache"
	"github.com/wholesalehub/platform/pkg/subscription"
)

type appConfig struct {
	Environment string        `env:"ENVIRONMENT" envDefault:"development"`
	Addr        string        `env:"ADDR" envDefault:":8080"`
	BaseURL     string        `env:"BASE_URL" envDefault:"http://localhost:8080"`
	CacheTTL    time.Duration `env:"RESPONSE_CACHE_TTL" envDefault:"60s"`
	UploadsDir  string        `env:"UPLOADS_DIR" envDefault:"./tmp/uploads"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, "platform"),
		logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
			if id := requestid.FromContext(ctx); id != "" {
				return slog.String("request_id", id), true
			}
			return slog.Attr{}, false
		}),
	)

	if err := run(ctx, appCfg, log); err != nil {
		log.ErrorContext(ctx, "server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, log *slog.Logger) error {
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	var redisCfg redis.Config
	config.MustLoad(&redisCfg)

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var authCfg auth.Config
	config.MustLoad(&authCfg)

	tokens, err := auth.NewTokenService(authCfg)
	if err != nil {
		return err
	}

	// Subscription state, plan resolution, and the limit gate.
	subStore := subscription.NewPostgresStore(pool)
	resolver := subscription.NewResolver(subStore, log)

	catalogRepo := catalog.NewPostgresRepository(pool)
	broadcastRepo := broadcast.NewPostgresRepository(pool)
	customerRepo := customer.NewPostgresRepository(pool)
	teamRepo := team.NewPostgresRepository(pool)

	counters := limits.CounterRegistry{}
	counters.Register(limits.ResourceProducts, catalogRepo.CountByMerchant)
	counters.Register(limits.ResourceBroadcasts, broadcast.MonthlyCounter(broadcastRepo))
	counters.Register(limits.ResourceTeamMembers, teamRepo.CountActive)
	counters.Register(limits.ResourceCustomGroups, customerRepo.CountGroupsByMerchant)

	limitsSvc, err := limits.NewService(ctx, limits.NewInMemSource(limits.DefaultPlans()), counters, resolver.ResolvePlanID, log)
	if err != nil {
		return err
	}

	var stripeCfg subscription.StripeConfig
	config.MustLoad(&stripeCfg)

	provider, err := subscription.NewStripeProvider(stripeCfg)
	if err != nil {
		return err
	}
	subsSvc := subscription.NewService(subStore, provider, log)

	mailer := newMailer(log)
	sender := newBroadcastSender(log)

	var s3Cfg file.S3Config
	config.MustLoad(&s3Cfg)

	var storage file.Storage
	localUploads := s3Cfg.Bucket == ""
	if localUploads {
		storage, err = file.NewLocalStorage(appCfg.UploadsDir, appCfg.BaseURL+"/uploads")
	} else {
		storage, err = file.NewS3Storage(ctx, s3Cfg)
	}
	if err != nil {
		return err
	}

	cache := respcache.New(respcache.NewRedisStore(redisClient), appCfg.CacheTTL, log)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(auth.Middleware(tokens))

	r.Get("/health", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))

	r.With(cache.Middleware).Mount("/products", catalog.NewHandler(catalogRepo, storage, limitsSvc, cache, log).Router())
	r.Mount("/broadcasts", broadcast.NewHandler(broadcastRepo, sender, customerRepo, limitsSvc, log).Router())
	r.Mount("/customers", customer.NewHandler(customerRepo, limitsSvc, log).Router())
	r.Mount("/team", team.NewHandler(teamRepo, mailer, limitsSvc, appCfg.BaseURL, log).Router())
	r.Mount("/subscription", billing.NewHandler(limitsSvc, subsSvc, log).Router())

	if localUploads {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(appCfg.UploadsDir))))
	}

	server := httpserver.New(
		httpserver.WithAddr(appCfg.Addr),
		httpserver.WithLogger(log),
	)

	log.InfoContext(ctx, "starting server", "addr", appCfg.Addr, "environment", appCfg.Environment)
	return server.Run(ctx, r)
}

// newMailer returns the Postmark sender when a server token is
// configured, otherwise the development sender that writes emails to
// disk.
func newMailer(log *slog.Logger) email.EmailSender {
	var cfg email.Config
	config.MustLoad(&cfg)

	if cfg.PostmarkServerToken == "" {
		log.Info("postmark token not set, writing emails to disk", "dir", cfg.DevOutputDir)
		return email.NewDevSender(cfg.DevOutputDir)
	}
	return email.MustNewPostmarkClient(cfg)
}

// newBroadcastSender returns the Twilio sender when credentials are
// configured, otherwise a sender that only logs messages.
func newBroadcastSender(log *slog.Logger) broadcast.Sender {
	var cfg broadcast.TwilioConfig
	config.MustLoad(&cfg)

	if cfg.AccountSID == "" {
		log.Info("twilio credentials not set, broadcasts will be logged only")
		return broadcast.NewDevSender(log)
	}

	sender, err := broadcast.NewTwilioSender(cfg)
	if err != nil {
		log.Error("twilio sender init failed, falling back to log-only sender", "error", err)
		return broadcast.NewDevSender(log)
	}
	return sender
}
