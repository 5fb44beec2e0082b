package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vaultlens/internal"
	pkgconfig "github.com/starford/vaultlens/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		if !errors.Is(err, pkgconfig.ErrNotFound) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	return cfg, nil
}

// withApp composes the application for one command and closes it afterwards.
func withApp(fn func(ctx context.Context, cmd *cli.Command, app *internal.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := internal.New(internal.WithConfig(cfg), internal.WithVersion(version))
		if err != nil {
			return fmt.Errorf("app init error: %w", err)
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

func root(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	switch {
	case cmd.Bool("build"):
		return app.Build(ctx)
	case cmd.String("search") != "":
		return app.Search(ctx, cmd.String("search"), int(cmd.Int("k")))
	default:
		return app.Health(ctx)
	}
}

func search(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("search: query is required")
	}
	query := cmd.Args().First()
	for _, arg := range cmd.Args().Tail() {
		query += " " + arg
	}
	return app.Search(ctx, query, int(cmd.Int("k")))
}

func main() {
	cmd := &cli.Command{
		Name:    "vaultlens",
		Usage:   "Link-graph health and semantic search for a Markdown vault",
		Version: version,
		Action:  withApp(root),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault root, overrides vault.path",
				Sources: cli.EnvVars("VAULT_PATH"),
			},
			&cli.BoolFlag{
				Name:  "build",
				Usage: "Build or update the embedding index",
			},
			&cli.StringFlag{
				Name:  "search",
				Usage: "Semantic search query",
			},
			&cli.IntFlag{
				Name:  "k",
				Usage: "Number of search results",
				Value: 5,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Print the vault health report",
				Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error { return app.Health(ctx) }),
			},
			{
				Name:   "build",
				Usage:  "Build or update the embedding index",
				Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error { return app.Build(ctx) }),
			},
			{
				Name:      "search",
				Usage:     "Find notes related to a query",
				ArgsUsage: "<query>",
				Action:    withApp(search),
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API with live index updates",
				Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error { return app.Serve(ctx) }),
			},
			{
				Name:   "mcp",
				Usage:  "Serve vault tools over MCP stdio",
				Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error { return app.ServeMCP(ctx) }),
			},
			{
				Name:   "run",
				Usage:  "Run health, index build and backup once, then notify",
				Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error { return app.RunPipeline(ctx) }),
			},
			{
				Name:   "watch",
				Usage:  "Rebuild the index whenever notes change",
				Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error { return app.Watch(ctx) }),
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}
