package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/aylahq/ayla-agent/internal/whatsapp"
)

// runPair handles the "ayla pair" subcommand. It asks the gateway to
// start a pairing session, renders the QR payload as a PNG, and prints
// the numeric pairing code as a fallback for devices that cannot scan.
func runPair(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelWarn, "text")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if !cfg.Gateway.Configured() {
		return fmt.Errorf("gateway not configured (set gateway.base_url and gateway.instance)")
	}

	client := whatsapp.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Instance, logger)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	state, err := client.CheckConnection(ctx)
	if err == nil && state.State == "open" {
		fmt.Fprintf(stdout, "Instance %q is already connected.\n", cfg.Gateway.Instance)
		return nil
	}

	info, err := client.ConnectInstance(ctx)
	if err != nil {
		return fmt.Errorf("start pairing: %w", err)
	}

	if info.QRCode != "" {
		pngPath := "ayla-pairing.png"
		if err := qrcode.WriteFile(info.QRCode, qrcode.Medium, 512, pngPath); err != nil {
			return fmt.Errorf("render QR code: %w", err)
		}
		fmt.Fprintf(stdout, "QR code written to %s\n", pngPath)
		fmt.Fprintln(stdout, "Scan it from WhatsApp > Linked Devices.")
	}
	if info.PairingCode != "" {
		fmt.Fprintf(stdout, "Pairing code: %s\n", info.PairingCode)
	}
	if info.QRCode == "" && info.PairingCode == "" {
		return fmt.Errorf("gateway returned no pairing data")
	}
	return nil
}
