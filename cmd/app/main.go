package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	_ "go.uber.org/automaxprocs"

	"github.com/starford/quire/internal"
	pkgconfig "github.com/starford/quire/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.String("config")

	// An explicitly named file must exist; the default one may be absent.
	load := pkgconfig.Load[internal.Config]
	if !cmd.IsSet("config") {
		load = func(name string, target *internal.Config) error {
			_, err := pkgconfig.LoadOptional(name, target)
			return err
		}
	}
	if err := load(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func compile(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("compile: expected exactly one file argument")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Compile(ctx, os.Stdout, cmd.Args().First(),
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	)
}

func list(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.List(ctx, os.Stdout, cmd.Bool("drafts"),
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	)
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func main() {
	cmd := &cli.Command{
		Name:    "quire",
		Usage:   "Compile Markdown and MDX posts to HTML and serve them over HTTP and MCP",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the JSON API, search and live events",
				Action: serve,
			},
			{
				Name:      "compile",
				Usage:     "Compile a Markdown file and print the result as JSON",
				ArgsUsage: "<file>",
				Action:    compile,
			},
			{
				Name:  "list",
				Usage: "Print the post listing as JSON",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "drafts", Usage: "Include drafts"},
				},
				Action: list,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
