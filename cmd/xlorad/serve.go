package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xlorad/internal/config"
	"xlorad/internal/httpapi"
	"xlorad/internal/manager"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", envOr("XLORAD_ADDR", ":8080"), "HTTP listen address")
	f.String("default-model", "", "model id used when a request names none")
	f.Int("budget-mb", 0, "memory budget in MB across resident models (0 = unlimited)")
	f.Int("margin-mb", 0, "reserved memory margin in MB")
	f.Int("context-len", 0, "context window for entries that declare none")
	f.Int("threads", 0, "native backend threads (0 = auto)")
	f.String("cors-origins", "", "comma-separated allowed origins; empty disables CORS")
	f.String("log-level", "", "request log level: off, error, info, debug")
	f.Bool("prewarm", true, "load the startup model before serving traffic")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cmd, &cfg)

	logger := newLogger(cfg.LogLevel)
	httpapi.SetLogger(logger)

	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	if reg.Len() == 0 {
		logger.Warn().Str("models_dir", cfg.ModelsDir).Msg("no models registered")
	}

	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:      reg,
		ModelsDir:     cfg.ModelsDir,
		DefaultModel:  cfg.DefaultModel,
		BudgetMB:      cfg.BudgetMB,
		MarginMB:      cfg.MarginMB,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       cfg.MaxWait(),
		DrainTimeout:  cfg.DrainTimeout(),
		ContextLen:    cfg.ContextLen,
		Threads:       cfg.Threads,
		Scaling:       cfg.XLoraScaling(),
		SamplingOrder: cfg.OrderPolicy(),
		CacheTTL:      cfg.CacheTTL(),
		CacheSize:     cfg.CacheSize,
		LRUStatePath:  cfg.LRUStatePath,
		Publisher:     httpapi.MetricsPublisher{},
	})

	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetChatTimeout(cfg.ChatTimeout())
	if cfg.CORS.Enabled {
		httpapi.SetCORSOptions(true, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)
	}

	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(base)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if prewarm, _ := cmd.Flags().GetBool("prewarm"); prewarm {
		if id := mgr.StartupModel(); id != "" {
			if _, err := mgr.Switch(base, id); err != nil {
				logger.Warn().Err(err).Str("model", id).Msg("prewarm failed")
			}
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Int("models", reg.Len()).Msg("xlorad listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		cancelBase()
		_ = mgr.Close()
		return err
	case <-stop:
		logger.Info().Msg("shutting down")
	}

	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	if err := mgr.Close(); err != nil {
		logger.Error().Err(err).Msg("manager close")
	}
	return nil
}

// applyServeFlags lets explicitly set flags win over file values. The addr
// flag default also fills in when the file leaves it empty.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if v, _ := f.GetString("addr"); f.Changed("addr") || cfg.Addr == "" {
		cfg.Addr = v
	}
	if f.Changed("default-model") {
		cfg.DefaultModel, _ = f.GetString("default-model")
	}
	if f.Changed("budget-mb") {
		cfg.BudgetMB, _ = f.GetInt("budget-mb")
	}
	if f.Changed("margin-mb") {
		cfg.MarginMB, _ = f.GetInt("margin-mb")
	}
	if f.Changed("context-len") {
		cfg.ContextLen, _ = f.GetInt("context-len")
	}
	if f.Changed("threads") {
		cfg.Threads, _ = f.GetInt("threads")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("cors-origins") {
		origins, _ := f.GetString("cors-origins")
		cfg.CORS.Enabled = origins != ""
		cfg.CORS.Origins = splitCSV(origins)
	}
}
