package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/config"
)

const usageText = `DittoDrive - personal cloud storage engine

Usage:
  dittodrive <command> [flags]

Commands:
  init         Write a default configuration file
  serve        Run the reconciler and metrics endpoint until interrupted
  usage        Print an owner's storage usage
  reconcile    Run one reconciliation pass
  empty-trash  Permanently delete everything in an owner's trash

Run 'dittodrive <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	var err error
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "init":
		err = runInit(args)
	case "serve":
		err = runServe(args)
	case "usage":
		err = runUsage(args)
	case "reconcile":
		err = runReconcile(args)
	case "empty-trash":
		err = runEmptyTrash(args)
	case "-h", "--help", "help":
		fmt.Print(usageText)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usageText)
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing configuration file")
	path := fs.String("config", "", "Destination path (default: "+config.GetDefaultConfigPath()+")")
	_ = fs.Parse(args)

	target := *path
	if target == "" {
		target = config.GetDefaultConfigPath()
	}
	if err := config.InitConfigToPath(target, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", target)
	return nil
}

// loadRuntime loads the configuration, applies logging and wires the drive.
func loadRuntime(ctx context.Context, configPath string, mutate func(*config.Config)) (*config.Config, *config.Runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}

	if err := config.ConfigureLogging(&cfg.Logging); err != nil {
		return nil, nil, err
	}

	rt, err := config.InitializeRuntime(ctx, cfg, config.InitializeMetrics(&cfg.Metrics))
	if err != nil {
		return nil, nil, err
	}
	return cfg, rt, nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	_ = fs.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, rt, err := loadRuntime(ctx, *configPath, nil)
	if err != nil {
		return err
	}

	fmt.Println("DittoDrive - personal cloud storage engine")
	logger.Info("Metadata: %s, content: %s, cache: %s",
		cfg.Metadata.Type, cfg.Storage.Content.Type, cfg.Storage.Cache.Type)

	rt.Collector.Start()

	if srv := rt.Metrics.Server; srv != nil {
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	logger.Info("Running. Press Ctrl+C to stop.")

	exitCode := waitForShutdown(ctx, rt, cfg.Server.ShutdownTimeout)
	cancel()

	if exitCode != 0 {
		return fmt.Errorf("shutdown completed with exit code %d", exitCode)
	}
	logger.Info("Stopped gracefully")
	return nil
}

// waitForShutdown blocks until SIGINT/SIGTERM or until ctx is done, then runs
// the shutdown operations with timeout and returns the exit code.
func waitForShutdown(ctx context.Context, rt *config.Runtime, timeout time.Duration) int {
	return <-gfshutdown.GracefulShutdown(ctx, timeout, shutdownOperations(rt))
}

// shutdownOperations lists the cleanup steps. The operations run
// concurrently, so the reconciler is stopped inside the same operation that
// closes the stores it reads.
func shutdownOperations(rt *config.Runtime) map[string]gfshutdown.Operation {
	return map[string]gfshutdown.Operation{
		"drive": func(ctx context.Context) error {
			if err := rt.Collector.Stop(ctx); err != nil {
				logger.Warn("Reconciler did not stop cleanly: %v", err)
			}
			return rt.Close()
		},
		"metrics": func(ctx context.Context) error {
			if rt.Metrics.Server == nil {
				return nil
			}
			return rt.Metrics.Server.Stop(ctx)
		},
	}
}

func parseOwner(fs *flag.FlagSet, raw string) (uuid.UUID, error) {
	if raw == "" {
		fs.Usage()
		return uuid.Nil, fmt.Errorf("--owner is required")
	}
	owner, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid owner id %q: %w", raw, err)
	}
	return owner, nil
}

func runUsage(args []string) error {
	fs := flag.NewFlagSet("usage", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	ownerFlag := fs.String("owner", "", "Owner id (UUID)")
	_ = fs.Parse(args)

	owner, err := parseOwner(fs, *ownerFlag)
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, rt, err := loadRuntime(ctx, *configPath, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	snap, err := rt.Drive.Usage(ctx, owner)
	if err != nil {
		return err
	}

	fmt.Println(snap)
	return nil
}

func runReconcile(args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	dryRun := fs.Bool("dry-run", false, "Report orphans without deleting them")
	_ = fs.Parse(args)

	ctx := context.Background()
	_, rt, err := loadRuntime(ctx, *configPath, func(cfg *config.Config) {
		if *dryRun {
			cfg.Reconcile.DryRun = true
		}
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	stats, err := rt.Collector.RunNow(ctx)
	if err != nil {
		return err
	}

	fmt.Println(stats.Summary())
	for _, id := range stats.MissingContent {
		fmt.Printf("missing content: file %s\n", id)
	}
	return nil
}

func runEmptyTrash(args []string) error {
	fs := flag.NewFlagSet("empty-trash", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	ownerFlag := fs.String("owner", "", "Owner id (UUID)")
	_ = fs.Parse(args)

	owner, err := parseOwner(fs, *ownerFlag)
	if err != nil {
		return err
	}

	ctx := context.Background()
	_, rt, err := loadRuntime(ctx, *configPath, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	stats, err := rt.Drive.EmptyTrash(ctx, owner)
	if err != nil {
		return err
	}

	fmt.Printf("Purged %d folder(s) and %d file(s), %s freed\n",
		stats.Folders, stats.Files, humanize.IBytes(uint64(stats.Bytes)))
	if stats.ContentFailures > 0 {
		fmt.Printf("%d blob(s) could not be deleted; run 'dittodrive reconcile' to clean up\n", stats.ContentFailures)
	}
	return nil
}
