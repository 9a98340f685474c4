package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/contacts/internal/avatar"
	"github.com/Skotchmaster/contacts/internal/config"
	"github.com/Skotchmaster/contacts/internal/events"
	"github.com/Skotchmaster/contacts/internal/httpserver"
	"github.com/Skotchmaster/contacts/internal/mailer"
	"github.com/Skotchmaster/contacts/internal/repo"
	"github.com/Skotchmaster/contacts/internal/search"
	"github.com/Skotchmaster/contacts/internal/service"
	"github.com/Skotchmaster/contacts/internal/worker"
	"github.com/Skotchmaster/contacts/pkg/db"
	"github.com/Skotchmaster/contacts/pkg/hash"
	"github.com/Skotchmaster/contacts/pkg/logging"
	"github.com/Skotchmaster/contacts/pkg/tokens"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gdb, err := db.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			log.Error("db_close_error", "error", err)
		}
	}()
	if err := repo.Migrate(initCtx, gdb); err != nil {
		return err
	}
	r := repo.New(gdb)

	tk, err := tokens.New(tokens.Config{
		Secret:     cfg.JWTSecret,
		Algorithm:  cfg.JWTAlgorithm,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})
	if err != nil {
		return err
	}
	hasher := hash.NewHasher(cfg.BcryptCost)

	pool := worker.New(log, cfg.Workers, cfg.QueueSize, cfg.TaskTimeout)
	publisher := newPublisher(cfg, log)
	mail := newMailer(cfg, log)

	var lookup service.AvatarLookup
	if cfg.GravatarEnabled {
		lookup = avatar.NewGravatar()
	}

	var store service.AvatarStore
	if cfg.S3.Endpoint != "" {
		s3, err := avatar.NewS3Store(initCtx, avatar.S3Config{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			Bucket:       cfg.S3.Bucket,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			PublicURL:    cfg.S3.PublicURL,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			return err
		}
		store = s3
	} else {
		log.Warn("avatar_storage_disabled", "reason", "S3_ENDPOINT is empty")
	}

	contactSvc := &service.ContactService{Repo: r, Events: publisher, Tasks: pool}
	var indexPool *worker.Pool
	if cfg.ESURL != "" {
		idx, err := newIndex(initCtx, cfg)
		if err != nil {
			log.Warn("search_index_disabled", "error", err)
		} else {
			// one worker keeps index writes for a contact in order
			indexPool = worker.New(log.With("pool", "search_index"), 1, cfg.QueueSize, cfg.TaskTimeout)
			contactSvc.Index = idx
			contactSvc.IndexTasks = indexPool
		}
	}

	authSvc := &service.AuthService{
		Users:   r,
		Hasher:  hasher,
		Tokens:  tk,
		Mail:    mail,
		Avatars: lookup,
		Events:  publisher,
		Tasks:   pool,
	}

	e := httpserver.New(log, cfg.CORSOrigins)
	httpserver.Register(e, &httpserver.Deps{
		DB:          gdb,
		AuthSvc:     authSvc,
		AuthHandler: &httpserver.AuthHTTP{Svc: authSvc, BaseURL: cfg.PublicBaseURL},
		UsersHandler: &httpserver.UsersHTTP{
			Svc: &service.UserService{
				Users:  r,
				Hasher: hasher,
				Store:  store,
				Mail:   mail,
				Events: publisher,
				Tasks:  pool,
			},
			BaseURL: cfg.PublicBaseURL,
		},
		ContactHandler:     &httpserver.ContactsHTTP{Svc: contactSvc},
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	closers := []closer{
		{"worker_pool", pool.Close},
	}
	if indexPool != nil {
		closers = append(closers, closer{"index_pool", indexPool.Close})
	}
	closers = append(closers, closer{"kafka", func(context.Context) error { return publisher.Close() }})

	return serveUntil(sigCtx, log, e, cfg.HTTPAddr, closers)
}

type httpServer interface {
	Start(addr string) error
	Shutdown(ctx context.Context) error
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// serveUntil runs srv until ctx is done or the server fails to start, then
// shuts the server down and runs closers in order. A start failure is
// returned so the process exits non-zero.
func serveUntil(ctx context.Context, log *slog.Logger, srv httpServer, addr string, closers []closer) error {
	startErr := make(chan error, 1)
	go func() {
		log.Info("http_server_start", "addr", addr)
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startErr <- err
		}
	}()

	var err error
	select {
	case <-ctx.Done():
		log.Info("shutting_down")
	case err = <-startErr:
		log.Error("http_server_error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http_shutdown_error", "error", err)
	}
	for _, c := range closers {
		if err := c.fn(shutdownCtx); err != nil {
			log.Error("close_error", "component", c.name, "error", err)
		}
	}
	log.Info("shutdown_complete")
	return err
}

func newPublisher(cfg *config.Config, log *slog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn("events_disabled", "reason", "KAFKA_BROKERS is empty")
		return events.Nop{}
	}
	return events.NewProducer(cfg.KafkaBrokers, map[string]string{
		events.TopicUsers:    cfg.KafkaUserTopic,
		events.TopicContacts: cfg.KafkaContactTopic,
	})
}

func newMailer(cfg *config.Config, log *slog.Logger) *mailer.Mailer {
	if cfg.SMTP.Host == "" {
		log.Warn("smtp_disabled", "reason", "MAIL_SERVER is empty")
		return mailer.New(mailer.LogSender{Log: log})
	}
	return mailer.New(mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		StartTLS: cfg.SMTP.StartTLS,
		SSL:      cfg.SMTP.SSL,
	}))
}

func newIndex(ctx context.Context, cfg *config.Config) (*search.Index, error) {
	idx, err := search.NewIndex(ctx, search.Config{
		URL:      cfg.ESURL,
		Username: cfg.ESUser,
		Password: cfg.ESPassword,
		Index:    cfg.ESIndex,
	})
	if err != nil {
		return nil, err
	}
	if err := idx.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}
