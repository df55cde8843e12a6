// Command gatequeued runs the job orchestration daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/cisgate/gatequeue"
	"github.com/cisgate/gatequeue/adminapi"
	"github.com/cisgate/gatequeue/config"
	"github.com/cisgate/gatequeue/gatefs"
	"github.com/cisgate/gatequeue/quota"
	"github.com/cisgate/gatequeue/scheduler"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "gatequeued",
		Short: "Job orchestration daemon mediating clients and batch schedulers",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "/etc/gatequeue/config.yaml", "path to the YAML configuration file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newValidateConfigCmd(&configPath))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the daemon version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func newValidateConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate the configuration file without starting the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(*configPath); err != nil {
				return err
			}
			fmt.Println("configuration valid")
			return nil
		},
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control loop and admin API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

func serve(ctx context.Context, configPath string) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gate := gatefs.NewGate(cfg.GatePaths())
	if err := gate.EnsureDirs(); err != nil {
		return fmt.Errorf("ensure gate dirs: %w", err)
	}

	schemas, err := cfg.LoadSchemas()
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	registry := quota.NewRegistry(cfg.QuotaConfigs())

	adapters, err := buildAdapters(cfg)
	if err != nil {
		return fmt.Errorf("build scheduler adapters: %w", err)
	}

	manager := gatequeue.New(gate, registry, adapters, gatequeue.Config{
		SleepTime:     cfg.SleepTime(),
		ShutdownTime:  cfg.ShutdownTime(),
		CleanupPool:   cfg.CleanupPoolSize,
		CleanupQueue:  cfg.CleanupQueueSize,
		ServiceSchema: schemas,
	}, log)

	if err := manager.Startup(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	admin := adminapi.New(gatefs.NewObserver(gate), registry, adminapi.Config{
		RateLimitPerSec: cfg.Admin.RateLimitPerSec,
		RateLimitBurst:  cfg.Admin.RateLimitBurst,
	})
	httpServer := &http.Server{Addr: cfg.Admin.Addr, Handler: admin}

	metricsTicker := time.NewTicker(15 * time.Second)
	defer metricsTicker.Stop()
	go func() {
		for range metricsTicker.C {
			admin.RefreshMetrics()
		}
	}()

	go func() {
		log.Info("admin api listening", "addr", cfg.Admin.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin api stopped", "err", err)
		}
	}()

	pauseCh := make(chan os.Signal, 1)
	signal.Notify(pauseCh, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		for sig := range pauseCh {
			switch sig {
			case syscall.SIGUSR1:
				manager.Pause()
				log.Info("admission paused")
			case syscall.SIGUSR2:
				manager.Resume()
				log.Info("admission resumed")
			}
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	signal.Stop(pauseCh)

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTime()+10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	return manager.Shutdown(shutdownCtx)
}

func buildAdapters(cfg *config.Config) ([]scheduler.Adapter, error) {
	var adapters []scheduler.Adapter
	for _, name := range cfg.ConfigSchedulers {
		switch name {
		case "pbs":
			adapters = append(adapters, scheduler.NewPBS(
				cfg.PBS.ScriptsDir,
				cfg.PBS.QueueDir,
				time.Duration(cfg.PBS.CmdTimeoutSecs)*time.Second,
			))
		case "ssh":
			signer, err := loadSSHSigner(cfg.SSH.KeyPath)
			if err != nil {
				return nil, fmt.Errorf("load ssh key: %w", err)
			}
			sshCfg := &ssh.ClientConfig{
				User:            cfg.SSH.User,
				Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
				HostKeyCallback: ssh.InsecureIgnoreHostKey(),
				Timeout:         10 * time.Second,
			}
			adapters = append(adapters, scheduler.NewSSH(cfg.SSH.Addr, sshCfg, cfg.SSH.RemoteWorkDir, cfg.SSH.QueueDir))
		default:
			return nil, fmt.Errorf("unknown scheduler %q in config_schedulers", name)
		}
	}
	return adapters, nil
}

func loadSSHSigner(keyPath string) (ssh.Signer, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(key)
}
