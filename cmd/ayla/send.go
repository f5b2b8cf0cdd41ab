package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aylahq/ayla-agent/internal/whatsapp"
)

// runSend handles the "ayla send <phone> <text>" subcommand: one paced
// delivery through the configured gateway. Useful as a smoke test for
// gateway credentials and segmentation without starting the server.
func runSend(ctx context.Context, stdout io.Writer, configPath string, phone, text string) error {
	logger := newLogger(stdout, slog.LevelWarn, "text")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if !cfg.Gateway.Configured() {
		return fmt.Errorf("gateway not configured (set gateway.base_url and gateway.instance)")
	}

	client := whatsapp.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Instance, logger)
	pacer := whatsapp.NewPacer(client, cfg.Segmenter.MaxLength, cfg.Pacer.Delay(), logger, nil)

	report := pacer.Deliver(ctx, phone, text)
	if report.Err != nil {
		return fmt.Errorf("delivery aborted after %d of %d segments: %w",
			report.MessagesSent, report.Segments, report.Err)
	}

	fmt.Fprintf(stdout, "Sent %d segment(s) to %s\n", report.MessagesSent, whatsapp.CleanNumber(phone))
	return nil
}
