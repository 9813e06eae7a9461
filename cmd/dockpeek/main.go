package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dockpeek/internal/daemon"
	"dockpeek/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		runDaemon()
		return
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: dockpeek daemon")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runSimple("reload", os.Args[2:], func(c *ipc.Client) error { return c.Reload() }))
	case "enable":
		os.Exit(runSimple("enable", os.Args[2:], func(c *ipc.Client) error { return c.Enable() }))
	case "disable":
		os.Exit(runSimple("disable", os.Args[2:], func(c *ipc.Client) error { return c.Disable() }))
	case "hide":
		os.Exit(runSimple("hide", os.Args[2:], func(c *ipc.Client) error { return c.HidePreview() }))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: dockpeek [command]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Without a command, dockpeek runs the daemon in the foreground.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon     Start the dockpeek daemon (foreground)")
	fmt.Fprintln(w, "  status     Show daemon status")
	fmt.Fprintln(w, "  reload     Reload configuration")
	fmt.Fprintln(w, "  enable     Enable dock click interception")
	fmt.Fprintln(w, "  disable    Disable dock click interception")
	fmt.Fprintln(w, "  hide       Hide any visible preview panel")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'dockpeek <command> --help' for command-specific options.")
}

func runDaemon() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	d, err := daemon.New(logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	ipcServer, err := ipc.NewServer(d, logger.With("component", "ipc"))
	if err != nil {
		logger.Error("failed to create IPC server", "error", err)
		os.Exit(1)
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start IPC server", "error", err)
		os.Exit(1)
	}
	defer ipcServer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		ipcServer.Stop()
		cancel()
	}()

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("daemon exited", "error", err)
		os.Exit(1)
	}
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dockpeek status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("Daemon:        running\n")
	fmt.Printf("Interception:  %s\n", onOff(status.Enabled))
	fmt.Printf("Hover preview: %s\n", onOff(status.HoverPreview))
	fmt.Printf("Dock regions:  %d\n", status.DockRegions)
	fmt.Printf("Preview state: %s\n", status.PreviewState)
	fmt.Printf("Uptime:        %s\n", (time.Duration(status.UptimeSeconds) * time.Second).String())
	return 0
}

func runSimple(name string, args []string, call func(*ipc.Client) error) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dockpeek %s\n", name)
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", name)
		fs.Usage()
		return 2
	}

	if err := call(ipc.NewClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("OK")
	return 0
}

func onOff(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}
