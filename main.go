// main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mverbeek/gitpad/internal/app"
	"github.com/mverbeek/gitpad/internal/config"
)

var (
	showHelp = flag.Bool("h", false, "Show help")
	version  = flag.Bool("version", false, "Show version")
)

// appVersion is set at build time via -ldflags "-X main.appVersion=x.y.z"
var appVersion = "dev"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("gitpad v%s\n", appVersion)
		return
	}
	if *showHelp {
		showUsage()
		return
	}

	dataDir := "."
	if args := flag.Args(); len(args) > 0 {
		dataDir = args[0]
	}

	absDir, err := filepath.Abs(dataDir)
	if err != nil {
		log.Fatalf("Invalid data directory: %v", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		log.Fatalf("Cannot create data directory: %v", err)
	}

	cfgPath := filepath.Join(absDir, "gitpad.json")
	cfg, created, err := config.Ensure(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if created {
		log.Printf("Wrote default config to %s", cfgPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("\nShutting down gracefully...")
		cancel()
	}()

	if err := app.Run(ctx, app.Options{
		DataDir: absDir,
		CfgPath: cfgPath,
		Cfg:     cfg,
	}); err != nil {
		log.Fatalf("gitpad failed: %v", err)
	}
}

func showUsage() {
	fmt.Println("Usage: gitpad [flags] [data-directory]")
	fmt.Println()
	fmt.Println("Runs the editor server using the given data directory (default: current")
	fmt.Println("directory). Credentials, drafts and the config file live there.")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
