package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"unisync/internal/app"
	"unisync/internal/domain/attendance"
	"unisync/internal/domain/instructor"
	"unisync/internal/domain/roster"
	"unisync/internal/domain/session"
	"unisync/internal/infra/cache"
	"unisync/internal/infra/config"
	idb "unisync/internal/infra/database"
	internalhttp "unisync/internal/infra/http"
	"unisync/internal/infra/logger"
	"unisync/internal/infra/memstore"
	"unisync/internal/infra/metrics"
	"unisync/internal/infra/scheduler"
	"unisync/internal/infra/telegram"
)

type stores struct {
	sessions    session.Repository
	templates   session.TemplateRepository
	records     attendance.Repository
	roster      roster.Provider
	instructors instructor.Repository
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment":  cfg.Environment,
		"store_driver": cfg.StoreDriver,
		"timezone":     cfg.CampusTimezone.String(),
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not initialize record store")
	}
	defer st.close()

	var markedCache app.MarkedCache = app.NopMarkedCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			mainLogger.WithError(err).Fatal("Redis ping failed")
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				mainLogger.WithError(err).Warn("Redis close error")
			}
		}()
		markedCache = cache.NewRedisMarkedCache(redisClient, cfg.MarkedCacheTTL)
		mainLogger.Info("Marked attendance cache backed by Redis")
	}

	promMetrics := metrics.NewPrometheus(prometheus.DefaultRegisterer)

	resolver := app.NewSessionResolver(st.sessions, st.templates, cfg.CampusTimezone, promMetrics, logger.Component("session_resolver"))
	recorder := app.NewAttendanceRecorder(st.records, markedCache, promMetrics, logger.Component("attendance_recorder"))
	reports := app.NewReportService(resolver, st.sessions, st.records, st.roster, markedCache, logger.Component("reports"))

	var (
		bot                 *telebot.Bot
		notificationService app.NotificationService
	)
	if cfg.TelegramEnabled() {
		bot, err = telegram.NewBot(cfg.TelegramToken, logger.Component("telebot"))
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		notificationService = app.NewNotificationServiceImpl(
			st.instructors,
			st.sessions,
			st.roster,
			resolver,
			recorder,
			telegram.NewTelebotAdapter(bot),
			logger.Component("notification_service"),
		)
		adminService := app.NewAdminService(st.instructors, cfg.AdminTelegramID)

		botLogger := logger.Component("telegram")
		telegram.RegisterBotCommands(ctx, bot, cfg, st.instructors, notificationService, botLogger)
		telegram.RegisterAdminHandlers(ctx, bot, adminService, cfg.AdminTelegramID, botLogger)
		telegram.RegisterRollCallHandlers(ctx, bot, notificationService, botLogger)
		mainLogger.Info("Telegram handlers registered")
	} else {
		mainLogger.Info("TELEGRAM_TOKEN not set, bot disabled")
	}

	var sessionScheduler *scheduler.SessionScheduler
	if cfg.SessionSweepEnabled {
		sessionScheduler = scheduler.NewSessionScheduler(
			st.templates,
			resolver,
			notificationService,
			promMetrics,
			logger.Component("scheduler"),
			cfg.CronSpecSessionSweep,
		)
		if err := sessionScheduler.Start(); err != nil {
			mainLogger.WithError(err).Fatal("Could not start session scheduler")
		}
	}

	api := internalhttp.NewServer(internalhttp.Deps{
		Recorder:  recorder,
		Reports:   reports,
		Sessions:  st.sessions,
		Roster:    st.roster,
		JWTSecret: cfg.JWTSecret,
		JWTIssuer: cfg.JWTIssuer,
		Logger:    logger.Component("http"),
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Fatal("HTTP server failed")
		}
	}()
	if bot != nil {
		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
	}

	<-ctx.Done() // Block until a signal is received
	mainLogger.Info("Shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("HTTP server shutdown error")
	}
	if sessionScheduler != nil {
		sessionScheduler.Stop()
	}
	if bot != nil {
		bot.Stop()
	}
	mainLogger.Info("Application shut down gracefully.")
}

func openStores(ctx context.Context, cfg *config.AppConfig) (*stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		db := memstore.New()
		return &stores{
			sessions:    memstore.NewSessionRepository(db),
			templates:   memstore.NewTemplateRepository(db),
			records:     memstore.NewAttendanceRepository(db),
			roster:      memstore.NewRosterProvider(db),
			instructors: memstore.NewInstructorRepository(db),
			close:       func() {},
		}, nil
	}

	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := idb.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &stores{
		sessions:    idb.NewPostgresSessionRepository(db),
		templates:   idb.NewPostgresTemplateRepository(db),
		records:     idb.NewPostgresAttendanceRepository(db),
		roster:      idb.NewPostgresRosterProvider(db),
		instructors: idb.NewPostgresInstructorRepository(db),
		close:       func() { db.Close() },
	}, nil
}
