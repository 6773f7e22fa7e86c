package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/soundshelf/internal/config"
	"github.com/MarcoPoloResearchLab/soundshelf/internal/database"
	"github.com/MarcoPoloResearchLab/soundshelf/internal/logging"
	"github.com/MarcoPoloResearchLab/soundshelf/internal/recommendations"
	"github.com/MarcoPoloResearchLab/soundshelf/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "soundshelf-api",
		Short: "Soundshelf recommendation and voting service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newServeCommand(), newSeedCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("allowed-origins", defaults.GetString("http.allowed_origins"), "Comma-separated CORS origins")
	cmd.PersistentFlags().Int("vote-rate-per-minute", defaults.GetInt("http.vote_rate_per_minute"), "Votes allowed per client IP per minute (0 disables)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("list-limit", defaults.GetInt("recommendations.list_limit"), "Maximum recommendations returned by the list endpoint (0 disables)")
	cmd.PersistentFlags().Bool("enable-reset", defaults.GetBool("testing.enable_reset"), "Expose POST /reset-database for end-to-end tests")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.allowed_origins", "allowed-origins")
	bindFlag(cmd, "http.vote_rate_per_minute", "vote-rate-per-minute")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "recommendations.list_limit", "list-limit")
	bindFlag(cmd, "testing.enable_reset", "enable-reset")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

// appRuntime bundles the components shared by serve and seed.
type appRuntime struct {
	config  config.AppConfig
	logger  *zap.Logger
	db      *gorm.DB
	service *recommendations.Service
}

func openRuntime() (*appRuntime, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	gateway, err := recommendations.NewGormGateway(db)
	if err != nil {
		return nil, err
	}

	service, err := recommendations.NewService(recommendations.ServiceConfig{
		Gateway:   gateway,
		Random:    recommendations.NewRandomSource(),
		ListLimit: appConfig.ListLimit,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	return &appRuntime{config: appConfig, logger: logger, db: db, service: service}, nil
}

func (r *appRuntime) close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = r.logger.Sync()
}

func runServer(ctx context.Context) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	handler, err := server.NewHTTPHandler(server.Dependencies{
		RecommendationService: rt.service,
		Logger:                rt.logger,
		AllowedOrigins:        rt.config.AllowedOrigins,
		VoteRatePerMinute:     rt.config.VoteRatePerMinute,
		EnableReset:           rt.config.EnableReset,
	})
	if err != nil {
		return err
	}
	if rt.config.EnableReset {
		rt.logger.Warn("database reset endpoint enabled")
	}

	httpServer := &http.Server{
		Addr:              rt.config.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("server starting", zap.String("address", rt.config.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
