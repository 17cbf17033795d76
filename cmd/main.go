package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"

	"go-threatguard/internal/bootstrap"
	"go-threatguard/internal/config"
	"go-threatguard/internal/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	app := cli.App{
		Name:    "threatguard",
		Usage:   "anti-nuke and anti-raid protection for Discord servers",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a JSON or YAML config file",
				Value:   "config.json",
				EnvVars: []string{"THREATGUARD_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "metrics-listen",
				Usage:   "address of the /metrics endpoint, empty to disable",
				EnvVars: []string{"METRICS_LISTEN"},
			},
		},
		Action: runBot,
	}
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "connect to the gateway and enforce",
			Action: runBot,
		},
		{
			Name:   "check-config",
			Usage:  "load and validate the config, then exit",
			Action: runCheckConfig,
		},
	}
	app.RunAndExitOnError()
}

func loadConfig(cctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(cctx.String("config"))
	if cfg == nil {
		return nil, err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, default thresholds substituted\n", err)
	}
	if level := cctx.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if cctx.IsSet("metrics-listen") {
		cfg.Metrics.Listen = cctx.String("metrics-listen")
	}
	return cfg, nil
}

func runBot(cctx *cli.Context) error {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}

	fmt.Printf("Starting Threat Guard %s\n", versioninfo.Short())

	b := bootstrap.New(cfg)
	if err := b.Initialize(); err != nil {
		return err
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		shutdown(b)
		return err
	}
	logging.Info("Threat Guard %s running", versioninfo.Short())

	<-ctx.Done()
	logging.Info("Shutdown signal received")
	shutdown(b)
	return nil
}

func shutdown(b *bootstrap.Bootstrap) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := b.Shutdown(ctx); err != nil {
		logging.Error("Shutdown failed: %v", err)
	}
}

func runCheckConfig(cctx *cli.Context) error {
	cfg, err := config.Load(cctx.String("config"))
	if cfg == nil {
		return err
	}
	if err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	fmt.Printf("store: %s\n", cfg.Store.Driver)
	fmt.Printf("ladder: %+v\n", cfg.Defaults.Ladder)
	fmt.Printf("auto unlock after: %s\n", cfg.Engine.AutoUnlockAfter)
	if cfg.Bot.Token == "" {
		return fmt.Errorf("no bot token (set DISCORD_TOKEN)")
	}
	fmt.Println("config ok")
	return nil
}
