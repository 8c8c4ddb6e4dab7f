// Package main implements the ThreadKit demo application: a managed
// runtime hosting the logger thread, the watchdog, a heartbeat thread,
// and an echo worker fed through its message queue.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	goruntime "runtime"
	"syscall"
	"time"

	"github.com/c360/threadkit/config"
	"github.com/c360/threadkit/queue"
	"github.com/c360/threadkit/registry"
	"github.com/c360/threadkit/runtime"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "threadkit"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := goruntime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML/JSON configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := runtime.New(cfg)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}

	slog.Info("Starting ThreadKit",
		"version", Version,
		"instance_id", rt.InstanceID(),
		"config_path", *configPath)

	if err := rt.RegisterMain(); err != nil {
		return fmt.Errorf("register main thread: %w", err)
	}

	// The logger is essential and starts first; every other thread
	// blocks on its readiness.
	if err := rt.StartLogger(); err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	if err := rt.StartWatchdog(); err != nil {
		return fmt.Errorf("start watchdog: %w", err)
	}
	if err := startWorkers(rt, cfg); err != nil {
		return err
	}

	handleSignals(rt)
	mainLoop(rt)

	rt.MainDone()
	if err := rt.WaitAllThreads(30 * time.Second); err != nil {
		slog.Warn("Not all threads finished in time", "error", err)
	}
	if err := rt.Wait(); err != nil {
		return fmt.Errorf("thread join: %w", err)
	}

	slog.Info("ThreadKit stopped")
	return nil
}

func loadConfig(path string) (*config.Provider, error) {
	if path == "" {
		return config.New(nil), nil
	}
	return config.LoadFile(path)
}

// handleSignals requests shutdown on SIGINT/SIGTERM. RequestShutdown
// is idempotent and safe from this context.
func handleSignals(rt *runtime.Runtime) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		slog.Info("Received signal, shutting down", "signal", sig.String())
		rt.RequestShutdown()
	}()
}

// mainLoop is the main thread's body: heartbeat, drive the watchdog
// self-healing check, and feed the echo worker until shutdown.
func mainLoop(rt *runtime.Runtime) {
	lastWatchdogCheck := time.Now()
	seq := 0

	for !rt.IsShutdownRequested() {
		rt.Registry().Heartbeat(registry.MainThreadLabel)

		// Only the main thread can restart a hung watchdog.
		if time.Since(lastWatchdogCheck) >= runtime.WatchdogCheckInterval {
			if err := rt.CheckWatchdog(); err != nil {
				rt.Logger().Warnf(registry.MainThreadLabel, "watchdog check: %v", err)
			}
			lastWatchdogCheck = time.Now()
		}

		seq++
		if msg, err := queue.NewMessage(queue.TypeData, []byte(fmt.Sprintf("tick %d", seq))); err == nil {
			if err := rt.Registry().PushMessage("ECHO", msg, 0); err != nil {
				rt.Logger().Debugf(registry.MainThreadLabel, "echo push skipped: %v", err)
			}
		}

		if rt.ShutdownEvent().Wait(time.Second) == nil {
			break
		}
	}
}

// startWorkers launches the demo threads: a heartbeat thread that logs
// a periodic pulse, and an echo worker that prints whatever lands in
// its queue.
func startWorkers(rt *runtime.Runtime, cfg *config.Provider) error {
	interval := cfg.GetDuration("heartbeat", "interval", 5*time.Second)
	if err := rt.StartThread(runtime.ThreadConfig{
		Label: "HEARTBEAT",
		Run: func(tc *runtime.ThreadContext) error {
			beats := 0
			for !tc.ShouldStop() {
				beats++
				tc.Infof("heartbeat %d", beats)
				tc.Heartbeat()
				if tc.Sleep(interval) {
					break
				}
			}
			return nil
		},
	}); err != nil {
		return fmt.Errorf("start heartbeat thread: %w", err)
	}

	if err := rt.StartThread(runtime.ThreadConfig{
		Label: "ECHO",
		Processor: runtime.ProcessorFunc(func(tc *runtime.ThreadContext, msg queue.Message) error {
			tc.Infof("received %s message %d: %s", msg.Type, msg.ID, msg.Content())
			return nil
		}),
	}); err != nil {
		return fmt.Errorf("start echo thread: %w", err)
	}
	return nil
}
