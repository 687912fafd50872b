package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"

	"github.com/chatward/chatward/util/cliutil"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "chatward",
		Usage:   "chat automod daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "gateway-host",
			Usage:   "websocket host of the chat gateway to subscribe to",
			Value:   "ws://localhost:7100",
			EnvVars: []string{"CHATWARD_GATEWAY_HOST"},
		},
		&cli.StringFlag{
			Name:    "api-host",
			Usage:   "base URL of the platform moderation API",
			Value:   "http://localhost:7101",
			EnvVars: []string{"CHATWARD_API_HOST"},
		},
		&cli.StringFlag{
			Name:    "api-token",
			Usage:   "bearer token for the moderation API",
			EnvVars: []string{"CHATWARD_API_TOKEN"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/chatward/chatward.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL; empty runs fully in-process",
			EnvVars: []string{"CHATWARD_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "channels-json",
			Usage:   "path to per-channel config overrides (JSON)",
			EnvVars: []string{"CHATWARD_CHANNELS_JSON"},
		},
		&cli.StringFlag{
			Name:    "sets-json",
			Usage:   "path to shared sets JSON (domain lists, emote vocabulary)",
			EnvVars: []string{"CHATWARD_SETS_JSON"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":7198",
			EnvVars: []string{"CHATWARD_METRICS_LISTEN"},
		},
		&cli.IntFlag{
			Name:    "lane-concurrency",
			Usage:   "worker count for the per-channel lane scheduler",
			Value:   8,
			EnvVars: []string{"CHATWARD_LANE_CONCURRENCY"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		shutdownTrace := configOTEL("chatward")
		defer func() {
			if err := shutdownTrace(context.Background()); err != nil {
				slog.Error("trace exporter shutdown", "err", err)
			}
		}()

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}

		srv, err := NewServer(db, Config{
			GatewayHost:     cctx.String("gateway-host"),
			APIHost:         cctx.String("api-host"),
			APIToken:        cctx.String("api-token"),
			RedisURL:        cctx.String("redis-url"),
			ChannelsJSON:    cctx.String("channels-json"),
			SetsJSON:        cctx.String("sets-json"),
			LaneConcurrency: cctx.Int("lane-concurrency"),
			Logger:          logger,
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				logger.Error("failed to start metrics endpoint", "err", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run automod service: %w", err)
		}
		return nil
	},
}
