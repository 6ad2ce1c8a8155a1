// Command wootedit runs one replica of the two-site collaborative text
// editor: a WOOT engine (package woot), a raw-TCP peer link (package
// network), and a Bubble Tea terminal surface (package ui).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/woot-crdt/wootedit/network"
	"github.com/woot-crdt/wootedit/ui"
	"github.com/woot-crdt/wootedit/woot"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "wootedit:", err)
		os.Exit(1)
	}
}

type config struct {
	siteID int64
	listen uint16
	peer   uint16
	delay  time.Duration
}

// parseArgs parses the positional CLI contract:
// <site_id> <listen_port> <peer_port> [artificial_delay_seconds].
func parseArgs(args []string) (config, error) {
	if len(args) < 3 || len(args) > 4 {
		return config{}, fmt.Errorf("usage: wootedit <site_id> <listen_port> <peer_port> [artificial_delay_seconds]")
	}

	siteID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return config{}, fmt.Errorf("site_id: %w", err)
	}
	listen, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return config{}, fmt.Errorf("listen_port: %w", err)
	}
	peer, err := strconv.ParseUint(args[2], 10, 16)
	if err != nil {
		return config{}, fmt.Errorf("peer_port: %w", err)
	}

	var delaySecs uint64
	if len(args) == 4 {
		delaySecs, err = strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			return config{}, fmt.Errorf("artificial_delay_seconds: %w", err)
		}
	}

	return config{
		siteID: siteID,
		listen: uint16(listen),
		peer:   uint16(peer),
		delay:  time.Duration(delaySecs) * time.Second,
	}, nil
}

func run(args []string) error {
	cfg, err := parseArgs(args)
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(fmt.Sprintf("wootedit-%d.log", cfg.siteID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	site := woot.NewSite(cfg.siteID, logger)
	sender := &network.Sender{
		PeerAddr: fmt.Sprintf("127.0.0.1:%d", cfg.peer),
		Delay:    cfg.delay,
		Log:      logger,
	}

	inbound := &network.Inbound{Engine: site, Log: logger}

	ln, err := inbound.Listen(ctx, fmt.Sprintf("127.0.0.1:%d", cfg.listen))
	if err != nil {
		return err
	}

	model := ui.New(site, sender, logger)
	program := tea.NewProgram(model, tea.WithAltScreen())
	inbound.OnApplied = func(woot.Operation) {
		program.Send(ui.RemoteApplied())
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- inbound.ServeListener(ctx, ln)
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		return fmt.Errorf("tui: %w", err)
	}
	cancel()

	if err := <-serveErr; err != nil {
		logger.Warn("inbound listener exited with error", "err", err)
	}
	return nil
}
