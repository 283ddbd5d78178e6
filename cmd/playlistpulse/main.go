// Package main provides the playlistpulse CLI application entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"playlistpulse/internal/core"
	"playlistpulse/internal/extract"
	httpserver "playlistpulse/internal/http"
	"playlistpulse/internal/pipeline"
	"playlistpulse/internal/reconcile"
	"playlistpulse/internal/spotify"
	"playlistpulse/internal/warehouse"
	"playlistpulse/pkg/playlistlink"
)

const defaultServerHost = "0.0.0.0"

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "playlistpulse",
	Short: "playlistpulse - Spotify playlist warehouse",
	Long: `playlistpulse tracks Spotify playlists over time: it extracts playlist, track
and artist metadata on a schedule, loads it into a dimensional SQLite warehouse
and serves reporting queries over the accumulated history.`,
	RunE: runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Perform a single warehouse run and exit",
	RunE:  runOnce,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a playlist for tracking",
	Long: `Register a playlist for tracking, either by catalog search (--query) or
directly by ID (--playlist-id with --name). Tracking starts with the next run.`,
	RunE: runRegister,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, text)")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("warehouse-path", "./playlistpulse.db", "Warehouse SQLite file path")
	rootCmd.PersistentFlags().String("timezone", "America/Denver", "Timezone for run date stamping")
	rootCmd.PersistentFlags().Int("interval-hours", 168, "Hours between scheduled runs")
	rootCmd.PersistentFlags().Int("max-retries", 5, "Attempts per scheduled run before abandoning it")
	rootCmd.PersistentFlags().Int("retry-delay-secs", 300, "Delay between run attempts in seconds")
	rootCmd.PersistentFlags().Float64("requests-per-second", 1, "Catalog request rate limit")
	rootCmd.PersistentFlags().String("server-host", defaultServerHost, "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")

	registerCmd.Flags().String("query", "", "Search query to resolve into a playlist")
	registerCmd.Flags().String("playlist-id", "", "Playlist ID, share URL or spotify: URI to register directly")
	registerCmd.Flags().String("name", "", "Playlist name (required with --playlist-id)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(registerCmd)

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		// Don't exit if .env file doesn't exist, just warn
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("PLAYLISTPULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(&config.Log)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")

	cfg.Warehouse.Path = viper.GetString("warehouse-path")
	if cfg.Warehouse.Path == "" {
		cfg.Warehouse.Path = core.DefaultConfig().Warehouse.Path
	}

	cfg.Pipeline.Timezone = viper.GetString("timezone")
	cfg.Pipeline.IntervalHours = viper.GetInt("interval-hours")
	cfg.Pipeline.MaxRetries = viper.GetInt("max-retries")
	cfg.Pipeline.RetryDelaySecs = viper.GetInt("retry-delay-secs")
	cfg.Pipeline.RequestsPerSecond = viper.GetFloat64("requests-per-second")

	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")

	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")

	return cfg
}

func buildLogger(logConfig *core.LogConfig) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(logConfig.Level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if strings.ToLower(logConfig.Format) == "text" {
		cfg.Encoding = "console"
	}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func validateConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}
	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}
	if config.Pipeline.IntervalHours <= 0 {
		return fmt.Errorf("run interval must be positive, got %d hours", config.Pipeline.IntervalHours)
	}
	if config.Pipeline.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive, got %d", config.Pipeline.MaxRetries)
	}
	if config.Pipeline.RequestsPerSecond <= 0 {
		return fmt.Errorf("request rate must be positive, got %f", config.Pipeline.RequestsPerSecond)
	}
	if _, err := time.LoadLocation(config.Pipeline.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", config.Pipeline.Timezone, err)
	}

	return nil
}

// newRunner wires the catalog client, extractor and reconciler around an
// already-open warehouse store.
func newRunner(ctx context.Context, store *warehouse.Store, recorder pipeline.Recorder) (*pipeline.Runner, error) {
	pacer := rate.NewLimiter(rate.Limit(config.Pipeline.RequestsPerSecond), 1)

	catalog, err := spotify.NewClient(ctx, &config.Spotify, logger.Named("spotify"), pacer)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	location, err := time.LoadLocation(config.Pipeline.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", config.Pipeline.Timezone, err)
	}

	extractor := extract.NewExtractor(catalog, logger.Named("extract"), pacer)
	reconciler := reconcile.NewReconciler(store, catalog, logger.Named("reconcile"))

	return pipeline.NewRunner(store, extractor, reconciler, recorder, logger.Named("pipeline"), location), nil
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting playlistpulse",
		zap.String("warehousePath", config.Warehouse.Path),
		zap.Int("intervalHours", config.Pipeline.IntervalHours),
		zap.String("timezone", config.Pipeline.Timezone))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	return serve(ctx)
}

func serve(ctx context.Context) error {
	store, err := warehouse.Open(&config.Warehouse, logger.Named("warehouse"))
	if err != nil {
		return fmt.Errorf("failed to open warehouse: %w", err)
	}
	defer store.Close()

	server := httpserver.NewServer(&config.Server, store, logger.Named("http"))

	runner, err := newRunner(ctx, store, server)
	if err != nil {
		return err
	}
	scheduler := pipeline.NewScheduler(runner, logger.Named("scheduler"),
		time.Duration(config.Pipeline.IntervalHours)*time.Hour,
		config.Pipeline.MaxRetries,
		time.Duration(config.Pipeline.RetryDelaySecs)*time.Second)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gCtx)
	})

	g.Go(func() error {
		return scheduler.Start(gCtx)
	})

	logger.Info("playlistpulse started",
		zap.String("httpAddr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("playlistpulse stopped with error", zap.Error(err))
		return err
	}

	logger.Info("playlistpulse stopped gracefully")
	return nil
}

func runOnce(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	store, err := warehouse.Open(&config.Warehouse, logger.Named("warehouse"))
	if err != nil {
		return fmt.Errorf("failed to open warehouse: %w", err)
	}
	defer store.Close()

	runner, err := newRunner(ctx, store, pipeline.NopRecorder{})
	if err != nil {
		return err
	}

	return runner.Run(ctx)
}

func runRegister(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	query, _ := cmd.Flags().GetString("query")
	playlistID, _ := cmd.Flags().GetString("playlist-id")
	name, _ := cmd.Flags().GetString("name")

	var row core.PlaylistRow
	switch {
	case query != "":
		pacer := rate.NewLimiter(rate.Limit(config.Pipeline.RequestsPerSecond), 1)
		catalog, err := spotify.NewClient(ctx, &config.Spotify, logger.Named("spotify"), pacer)
		if err != nil {
			return fmt.Errorf("failed to create catalog client: %w", err)
		}

		row, err = catalog.FindPlaylist(ctx, query)
		if err != nil {
			return fmt.Errorf("playlist lookup failed: %w", err)
		}
	case playlistID != "":
		if name == "" {
			return fmt.Errorf("--name is required with --playlist-id")
		}

		id, err := playlistlink.Parse(playlistID)
		if err != nil {
			return fmt.Errorf("invalid playlist reference: %w", err)
		}
		row = core.PlaylistRow{SpotifyID: id, Name: name}
	default:
		return fmt.Errorf("either --query or --playlist-id is required")
	}

	store, err := warehouse.Open(&config.Warehouse, logger.Named("warehouse"))
	if err != nil {
		return fmt.Errorf("failed to open warehouse: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	if err := store.InsertPlaylist(ctx, row); err != nil {
		if errors.Is(err, warehouse.ErrDuplicateRow) {
			logger.Info("Playlist already registered", zap.String("playlistID", row.SpotifyID))
			return nil
		}
		return fmt.Errorf("register playlist: %w", err)
	}

	logger.Info("Registered playlist",
		zap.String("playlistID", row.SpotifyID),
		zap.String("name", row.Name))
	fmt.Printf("Registered playlist %q (%s)\n", row.Name, row.SpotifyID)

	return nil
}
