package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/standardbeagle/lri/internal/config"
	"github.com/standardbeagle/lri/internal/debug"
	"github.com/standardbeagle/lri/internal/indexing"
	"github.com/standardbeagle/lri/internal/mcp"
	"github.com/standardbeagle/lri/internal/persist"
	"github.com/standardbeagle/lri/internal/query"
	"github.com/standardbeagle/lri/internal/store"
	"github.com/standardbeagle/lri/internal/symbols"
	"github.com/standardbeagle/lri/internal/types"
	"github.com/standardbeagle/lri/internal/version"

	"github.com/urfave/cli/v2"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config

	if cfgPath := c.String("config"); cfgPath != "" {
		loaded, err := config.LoadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", cfgPath, err)
		}
		cfg = loaded
		if root := c.String("root"); root != "" {
			absRoot, err := filepath.Abs(root)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
			}
			cfg.Project.Root = absRoot
		}
	} else {
		root := c.String("root")
		if root == "" {
			root = "."
		}
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
		}

		cfg, err = config.Load(absRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", absRoot, err)
		}
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}

	return cfg, nil
}

// index bundles the collaborators every command needs.
type index struct {
	cfg      *config.Config
	provider *symbols.JavaProvider
	store    *store.Store
	updater  *indexing.Updater
	engine   *query.Engine
}

func buildIndex(cfg *config.Config) *index {
	provider := symbols.NewJavaProvider(cfg.Project.Root, symbols.JavaProviderOptions{
		ProjectName: cfg.Project.Name,
		MaxFileSize: cfg.Index.MaxFileSize,
		Include:     cfg.Include,
		Exclude:     cfg.Exclude,
	})
	st := store.New()
	persister := persist.New(cfg.Project.Root, provider)
	updater := indexing.NewUpdater(cfg, provider, st, persister)
	engine := query.NewEngine(st, cfg.ServicePrefixes)

	return &index{
		cfg:      cfg,
		provider: provider,
		store:    st,
		updater:  updater,
		engine:   engine,
	}
}

func main() {
	app := &cli.App{
		Name:                   "lri",
		Usage:                  "Lightning route index: find Java HTTP endpoints by URL, handler, or module",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to index (overrides config)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a .lri.kdl config file (default: <root>/.lri.kdl)",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Include files matching glob patterns (e.g., --include '**/*.java')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (e.g., --exclude '**/generated/**')",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(os.Stderr)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Scan the workspace once and persist the route index",
				Action:  indexCommand,
			},
			{
				Name:      "search",
				Aliases:   []string{"s"},
				Usage:     "Search indexed routes (e.g., lri search 'GET /users/{id}')",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
					&cli.IntFlag{
						Name:    "max-results",
						Aliases: []string{"n"},
						Usage:   "Max number of results (0 = config default)",
					},
				},
				Action: searchCommand,
			},
			{
				Name:   "watch",
				Usage:  "Keep the index fresh, re-scanning changed files until interrupted",
				Action: watchCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Start MCP (Model Context Protocol) server with stdio transport",
				Action: mcpCommand,
			},
			{
				Name:      "prefixes",
				Aliases:   []string{"p"},
				Usage:     "Show or replace the gateway service prefixes used during matching",
				ArgsUsage: "[prefix...]",
				Action:    prefixesCommand,
			},
		},
		Action: func(c *cli.Context) error {
			// Default to search when a query is given bare on the command line.
			if c.NArg() > 0 {
				return searchCommand(c)
			}
			return cli.ShowAppHelp(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func indexCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	idx := buildIndex(cfg)
	if err := idx.updater.FullScan(c.Context); err != nil {
		return err
	}

	fmt.Printf("Indexed %d routes across %d files in %s\n",
		idx.store.Len(), len(idx.store.Files()), cfg.Project.Root)
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("usage: lri search <query>")
	}
	rawQuery := c.Args().First()

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	// One-shot lookup: restore the persisted index (or scan) without watching.
	cfg.Index.WatchMode = false
	idx := buildIndex(cfg)
	if err := idx.updater.Start(c.Context); err != nil {
		return err
	}
	defer idx.updater.Stop()

	routes := idx.engine.Search(rawQuery)
	max := c.Int("max-results")
	if max <= 0 {
		max = cfg.Search.MaxResults
	}
	if len(routes) > max {
		routes = routes[:max]
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(routes)
	}

	if len(routes) == 0 {
		fmt.Printf("No routes match %q\n", rawQuery)
		if suggestions := idx.engine.Suggest(rawQuery); len(suggestions) > 0 {
			fmt.Println("Did you mean a handler named:")
			for _, s := range suggestions {
				fmt.Printf("  %s\n", s)
			}
		}
		return nil
	}

	for _, r := range routes {
		printRoute(r)
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	cfg.Index.WatchMode = true
	idx := buildIndex(cfg)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	if err := idx.updater.Start(ctx); err != nil {
		return err
	}
	defer idx.updater.Stop()

	fmt.Printf("Watching %s (%d routes indexed). Ctrl-C to stop.\n",
		cfg.Project.Root, idx.store.Len())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("Shutting down...")
	return nil
}

func mcpCommand(c *cli.Context) error {
	// Suppress all debug output before anything touches stdio.
	debug.SetMCPMode(true)

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	idx := buildIndex(cfg)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	if err := idx.updater.Start(ctx); err != nil {
		return err
	}
	defer idx.updater.Stop()

	server := mcp.NewServer(cfg, idx.updater, idx.engine, idx.store)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		cancel()
		return <-errChan
	}
}

func prefixesCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	if c.NArg() > 0 {
		if err := cfg.SetServicePrefixes(c.Args().Slice()); err != nil {
			return fmt.Errorf("failed to save service prefixes: %w", err)
		}
	}

	prefixes := cfg.ServicePrefixes()
	if len(prefixes) == 0 {
		fmt.Println("No service prefixes configured.")
		return nil
	}
	for _, p := range prefixes {
		fmt.Println(p)
	}
	return nil
}

func printRoute(r types.Route) {
	file, line := "", 0
	if r.Owner != nil {
		file, line = r.Owner.Navigate()
	}
	fmt.Printf("%-7s %-40s %s.%s [%s] %s:%d\n",
		r.Method, r.Path, r.TypeName, r.MemberName, r.ModuleName, file, line)
}
