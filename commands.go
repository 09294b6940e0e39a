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

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/srsbot/internal/bot"
	"github.com/example/srsbot/internal/config"
	"github.com/example/srsbot/internal/curriculum"
	"github.com/example/srsbot/internal/database"
	"github.com/example/srsbot/internal/excel"
	"github.com/example/srsbot/internal/inmem"
	"github.com/example/srsbot/internal/lesson"
	"github.com/example/srsbot/internal/metrics"
	"github.com/example/srsbot/internal/normalize"
	"github.com/example/srsbot/internal/scheduler"
	"github.com/example/srsbot/pkg/models"
)

const shutdownTimeout = 5 * time.Second

var (
	envFile    string
	seedFile   string
	importKind string

	cfg    *config.Config
	logger *slog.Logger
)

var importOpts = excel.DefaultImportConfig()

var (
	rootCmd = &cobra.Command{
		Use:           "srsbot",
		Short:         "Spaced repetition bot for Japanese and Mandarin characters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(envFile)
			if err != nil {
				return err
			}
			level, _ := cfg.SlogLevel()
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the reminder scheduler",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	importCmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Load content items from an .xlsx or .csv file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load")
	serveCmd.Flags().StringVar(&seedFile, "content", "", "content file to import before serving")
	importCmd.Flags().StringVar(&importOpts.SheetName, "sheet", importOpts.SheetName, "worksheet to read")
	importCmd.Flags().StringVar(&importKind, "kind", "", "kind for sheets without a kind column")
	importCmd.Flags().StringVar(&importOpts.Separator, "separator", importOpts.Separator, "separator between accepted answers in a cell")
	importCmd.Flags().IntVar(&importOpts.HeaderRow, "header-row", importOpts.HeaderRow, "row holding the column names")

	rootCmd.AddCommand(serveCmd, importCmd, migrateCmd)
}

// contentStore serves lessons and accepts imports.
type contentStore interface {
	lesson.ContentRepository
	excel.ContentWriter
}

// stores opens the configured backend. close releases it.
func stores(ctx context.Context) (lesson.ProfileStore, contentStore, func(), error) {
	var driver string
	switch cfg.DBType {
	case config.DBMemory:
		logger.Warn("using in-memory storage, progress is lost on exit")
		return inmem.NewStore(), inmem.NewContent(), func() {}, nil
	case config.DBPostgres:
		driver = database.DriverPostgres
	default:
		driver = database.DriverSQLite
	}
	db, err := database.Connect(ctx, driver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Error("close database", "error", err)
		}
	}
	return database.NewUserRepository(db), database.NewContentRepository(db), closeDB, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.RequireToken(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles, content, closeStores, err := stores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	registry := curriculum.Default()
	if seedFile != "" {
		if err := importFile(ctx, registry, content, seedFile); err != nil {
			return err
		}
	}

	service, err := lesson.NewService(registry, content, profiles, normalize.New(), lesson.Config{
		Capacity: cfg.MaxLessonSize,
		Leveler:  cfg.Leveler(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("unable to create bot: %w", err)
	}
	logger.Info("authorized on account", "username", api.Self.UserName)

	b := bot.New(api, service, registry, bot.BotConfig{
		DefaultTrack:    curriculum.TrackJapanese,
		DefaultCapacity: cfg.MaxLessonSize,
		RateLimit:       cfg.TelegramRateLimit,
		IsAdmin:         cfg.IsAdmin,
		Logger:          logger,
	})

	sched := scheduler.New(registry, profiles, b, scheduler.Config{
		StartHour: cfg.NotificationStartHour,
		EndHour:   cfg.NotificationEndHour,
		Interval:  cfg.ReminderInterval,
		Logger:    logger,
	})
	b.SetReminder(sched)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)
	g.Go(func() error {
		<-gctx.Done()
		api.StopReceivingUpdates()
		return nil
	})
	g.Go(func() error {
		b.Run(gctx, updates)
		return nil
	})

	logger.Info("bot started, press Ctrl+C to stop")
	err = g.Wait()
	logger.Info("bot stopped")
	return err
}

func runImport(cmd *cobra.Command, args []string) error {
	if cfg.DBType == config.DBMemory {
		return fmt.Errorf("%w: import needs a persistent DB_TYPE", config.ErrInvalid)
	}
	_, content, closeStores, err := stores(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStores()
	return importFile(cmd.Context(), curriculum.Default(), content, args[0])
}

func importFile(ctx context.Context, registry *curriculum.Registry, content contentStore, path string) error {
	opts := importOpts
	opts.FilePath = path
	opts.Kind = models.Kind(importKind)
	res, err := excel.NewImporter(registry, content).ImportItems(ctx, opts)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	for _, e := range res.Errors {
		logger.Warn("row skipped", "file", path, "error", e)
	}
	logger.Info("content imported", "file", path,
		"rows", res.TotalProcessed, "items", res.Created, "tiers", res.TiersDeclared, "skipped", res.Skipped)
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if cfg.DBType == config.DBMemory {
		return fmt.Errorf("%w: nothing to migrate for DB_TYPE=memory", config.ErrInvalid)
	}
	_, _, closeStores, err := stores(cmd.Context())
	if err != nil {
		return err
	}
	closeStores()
	logger.Info("schema up to date", "db", cfg.DBType)
	return nil
}
