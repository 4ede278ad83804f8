package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"scrollsafe/internal/config"
	"scrollsafe/internal/daemon"
	"scrollsafe/internal/logging"
	"scrollsafe/internal/page"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var documentPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scrollsafe daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx, documentPath)
		},
	}
	cmd.Flags().StringVar(&documentPath, "document", "",
		"Path to the replayed document JSON (defaults to <state_dir>/document.json)")
	return cmd
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext, documentPath string) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		LogPath: filepath.Join(cfg.Paths.LogDir, "scrollsafe.log"),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.StateDir, "scrollsafed.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	documentPath = strings.TrimSpace(documentPath)
	if documentPath == "" {
		documentPath = filepath.Join(cfg.Paths.StateDir, "document.json")
	} else {
		expanded, err := config.ExpandPath(documentPath)
		if err != nil {
			return fmt.Errorf("resolve document path: %w", err)
		}
		documentPath = expanded
	}
	session, err := page.NewFileSession(documentPath, 0, logger)
	if err != nil {
		return fmt.Errorf("open page session: %w", err)
	}

	d, err := daemon.New(daemon.Options{
		Config:  cfg,
		Session: session,
		Logger:  logger,
	})
	if err != nil {
		_ = session.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("scrollsafe daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
