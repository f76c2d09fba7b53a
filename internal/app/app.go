package app

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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ykvlv/todo-relay/internal/commands"
	"github.com/ykvlv/todo-relay/internal/config"
	"github.com/ykvlv/todo-relay/internal/digest"
	"github.com/ykvlv/todo-relay/internal/discord"
	"github.com/ykvlv/todo-relay/internal/metrics"
	"github.com/ykvlv/todo-relay/internal/presence"
	"github.com/ykvlv/todo-relay/internal/scheduler"
	"github.com/ykvlv/todo-relay/internal/telegram"
	"github.com/ykvlv/todo-relay/internal/todomate"
)

const runningText = "✅ Todo relay is running"

// platform is a chat transport.
type platform interface {
	scheduler.Sender
	Run(ctx context.Context) error
}

type App struct {
	cfg      config.Config
	log      *zap.Logger
	platform platform
	sched    *scheduler.Scheduler
	httpSrv  *http.Server
}

// NewBuilder creates the digest builder over the TodoMate client.
func NewBuilder(cfg config.Config, log *zap.Logger, style digest.Style, obs digest.FetchObserver) (*digest.Builder, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	client := todomate.New(todomate.Options{
		AuthURL:  cfg.Todomate.AuthURL,
		FeedURL:  cfg.Todomate.FeedURL,
		APIKey:   cfg.Todomate.APIKey,
		Email:    cfg.Todomate.Email,
		Password: cfg.Todomate.Password,
		Location: loc,
	}, log.Named("todomate"))

	opts := []digest.Option{digest.WithFetchTimeout(cfg.FetchTimeout)}
	if obs != nil {
		opts = append(opts, digest.WithObserver(obs))
	}
	return digest.NewBuilder(cfg.Directory(), client, loc, style, log.Named("digest"), opts...), nil
}

// StyleFor returns the text style of a platform.
func StyleFor(platform string) digest.Style {
	if platform == config.PlatformTelegram {
		return digest.HTMLStyle{}
	}
	return digest.DiscordStyle{}
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	builder, err := NewBuilder(cfg, log, StyleFor(cfg.Platform), m)
	if err != nil {
		return nil, err
	}
	handler := commands.NewHandler(builder, log.Named("commands"), m)

	var p platform
	switch cfg.Platform {
	case config.PlatformTelegram:
		if cfg.LoungeChannelID != "" {
			log.Warn("lounge presence is not supported on telegram, ignoring LOUNGE_CHANNEL_ID")
		}
		p, err = telegram.New(cfg.BotToken, handler, log.Named("telegram"))
	default:
		var tracker *presence.Tracker
		if cfg.LoungeChannelID != "" {
			var ids []string
			for _, u := range cfg.Directory().Users() {
				ids = append(ids, u.ChatID)
			}
			tracker = presence.NewTracker(cfg.LoungeChannelID, ids)
		}
		p, err = discord.New(cfg.BotToken, handler, log.Named("discord"), discord.Options{
			Tracker:           tracker,
			PresenceChannelID: cfg.PresenceChannelID,
			Observer:          m,
		})
	}
	if err != nil {
		return nil, err
	}

	ledger, err := digest.NewLedger(0)
	if err != nil {
		return nil, err
	}
	jobs := &scheduler.Jobs{
		Digests:        builder,
		Sender:         p,
		Ledger:         ledger,
		TasksChannelID: cfg.ChannelID,
		Observer:       m,
		Log:            log.Named("jobs"),
	}
	triggers, err := jobs.Triggers(loc)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      newMux(reg),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{
		cfg:      cfg,
		log:      log,
		platform: p,
		sched:    scheduler.New(loc, log.Named("scheduler"), m, triggers...),
		httpSrv:  srv,
	}, nil
}

func newMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(runningText))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting todo-relay",
		zap.String("platform", a.cfg.Platform),
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("tz", a.cfg.Timezone),
		zap.Int("users", len(a.cfg.Directory().Enrolled())),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutdown signal received")

		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := a.httpSrv.Shutdown(shCtx)
		cancel()

		if err != nil {
			a.log.Warn("http server shutdown error", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		return a.platform.Run(ctx)
	})
	g.Go(func() error {
		a.sched.Run(ctx)
		return nil
	})

	return g.Wait()
}
