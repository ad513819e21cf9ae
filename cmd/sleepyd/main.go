package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wan0ge/sleepy/internal/common/fsutil"
	"github.com/wan0ge/sleepy/internal/config"
	"github.com/wan0ge/sleepy/internal/event"
	"github.com/wan0ge/sleepy/internal/httpapi"
	"github.com/wan0ge/sleepy/internal/plugin"
	"github.com/wan0ge/sleepy/internal/store"

	// Compiled-in plugins register themselves with the builtin table.
	_ "github.com/wan0ge/sleepy/internal/plugins/statusguard"
)

const version = "6.1.0"

// hostVersion is what plugins gate their compatibility range against.
var hostVersion = plugin.Version{6, 1, 0}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		cfgPath  string
		addr     string
		secret   string
		dataFile string
		debug    bool
	)
	root := &cobra.Command{
		Use:           "sleepyd",
		Short:         "Presence and status broadcasting daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgPath, addr, secret, dataFile, debug)
		},
	}
	root.Flags().StringVarP(&cfgPath, "config", "c", envStr("SLEEPY_CONFIG", ""), "Config file (.yaml/.json/.toml); defaults SLEEPY_CONFIG")
	root.Flags().StringVar(&addr, "addr", envStr("SLEEPY_ADDR", ""), "HTTP listen address, e.g. :9010; defaults SLEEPY_ADDR")
	root.Flags().StringVar(&secret, "secret", envStr("SLEEPY_SECRET", ""), "Shared secret for mutating endpoints; defaults SLEEPY_SECRET")
	root.Flags().StringVar(&dataFile, "data-file", "", "State persistence path, empty disables")
	root.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return root
}

func run(cfgPath, addr, secret, dataFile string, debug bool) error {
	var cfg config.Config
	if cfgPath != "" {
		path, err := fsutil.ExpandHome(cfgPath)
		if err != nil {
			return err
		}
		if !fsutil.PathExists(path) {
			return fmt.Errorf("config file not found: %s", path)
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	cfg = config.ApplyDefaults(cfg)
	// Flags override the file.
	if addr != "" {
		cfg.Main.Addr = addr
	}
	if secret != "" {
		cfg.Main.Secret = secret
	}
	if dataFile != "" {
		cfg.Main.DataFile = dataFile
	}
	if debug {
		cfg.Main.Debug = true
	}

	level := zerolog.InfoLevel
	if cfg.Main.Debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	if cfg.Main.Secret == "" {
		log.Warn().Msg("no secret configured, all mutating endpoints will reject")
	}

	bus := event.NewBus(log.With().Str("component", "bus").Logger())

	dataPath, err := fsutil.ExpandHome(cfg.Main.DataFile)
	if err != nil {
		return err
	}
	st := store.New(log.With().Str("component", "store").Logger(), bus, cfg.Status.StatusList, dataPath)
	if err := st.Load(); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	api := &httpapi.Server{
		Log:     log.With().Str("component", "http").Logger(),
		Store:   st,
		Bus:     bus,
		Cfg:     cfg,
		Version: version,
	}
	mux := api.NewMux()

	reg := plugin.NewRegistry(plugin.RegistryConfig{
		Log:           log.With().Str("component", "plugin").Logger(),
		Version:       hostVersion,
		Bus:           bus,
		Store:         st,
		PluginConfigs: cfg.Plugin,
	})
	reg.LoadAll(cfg.Plugins.Enabled, mux)

	flushCtx, stopFlush := context.WithCancel(context.Background())
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		st.Flush(flushCtx, 30*time.Second)
	}()

	srv := &http.Server{
		Addr:              cfg.Main.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	bus.Dispatch(context.Background(), event.NewAppStarted())

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Main.Addr).Str("version", version).Msg("sleepyd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}

	bus.Dispatch(context.Background(), event.NewAppStopped(exitCode))

	// Stop the flush loop; it performs one final save before exiting.
	stopFlush()
	<-flushDone

	if exitCode != 0 {
		return fmt.Errorf("server exited abnormally")
	}
	return nil
}
