// Package main is the entry point for gamecallsd, the real-time
// vocalization-similarity engine daemon. It loads configuration,
// wires an engine.Engine over the configured master-call feature
// cache, and serves it over a Unix-socket IPC server until an
// interrupt signal arrives.
//
// Flag parsing, signal handling, and component-wiring order are
// carried over from the teacher's cmd/musicd/main.go.
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

	"github.com/huntmasteracademy/gamecalls-engine/internal/config"
	"github.com/huntmasteracademy/gamecalls-engine/internal/engine"
	"github.com/huntmasteracademy/gamecalls-engine/internal/featurestore"
	"github.com/huntmasteracademy/gamecalls-engine/internal/ipc"
	"github.com/huntmasteracademy/gamecalls-engine/internal/session"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Flags holds daemon startup configuration.
type Flags struct {
	SocketPath string
	ConfigDir  string
	Verbose    bool
}

func main() {
	flags := parseFlags()

	if flags.Verbose {
		log.Printf("gamecallsd version %s starting...", Version)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.SocketPath, "socket", "", "IPC socket path (default: auto-generated based on UID)")
	flag.StringVar(&f.ConfigDir, "config", "", "Configuration directory (default: ~/.config/gamecallsd)")
	flag.BoolVar(&f.Verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	if f.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("failed to get home directory: %v", err)
		}
		f.ConfigDir = filepath.Join(homeDir, ".config", "gamecallsd")
	}

	if f.SocketPath == "" {
		f.SocketPath = fmt.Sprintf("/tmp/gamecallsd-%d.sock", os.Getuid())
	}

	return f
}

func run(ctx context.Context, flags *Flags) error {
	if err := os.MkdirAll(flags.ConfigDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configMgr := config.NewManager(flags.ConfigDir)
	if err := configMgr.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	daemonCfg := configMgr.Get()

	if err := os.MkdirAll(daemonCfg.MasterCallDir, 0700); err != nil {
		return fmt.Errorf("failed to create master call directory: %w", err)
	}

	eng := engine.New(engine.Config{
		MaxSessions:         daemonCfg.MaxSessions,
		MasterCacheCapacity: daemonCfg.MasterCacheCapacity,
		MasterCallDir:       daemonCfg.MasterCallDir,
		Session: session.Config{
			SampleRate:           daemonCfg.Audio.SampleRate,
			FrameSize:            daemonCfg.Audio.FrameSize,
			HopSize:              daemonCfg.Audio.HopSize,
			NumCoeffs:            daemonCfg.Audio.NumCoeffs,
			NumFilters:           daemonCfg.Audio.NumFilters,
			Window:               daemonCfg.Audio.WindowKind(),
			DTWBandRadius:        daemonCfg.DTWBandRadius,
			ScoringCadenceFrames: daemonCfg.ScoringCadenceFrames,
		},
	}, func(callID string) (featurestore.Features, error) {
		return featurestore.LoadFile(filepath.Join(daemonCfg.MasterCallDir, callID+".mfc"))
	})

	server := ipc.NewServer(flags.SocketPath, eng)

	log.Printf("starting IPC server on %s", flags.SocketPath)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("IPC server error: %w", err)
	}

	return nil
}
