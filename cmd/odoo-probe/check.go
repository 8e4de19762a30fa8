package main

import (
	"context"
	"io"

	"github.com/dandantas/odoo-probe/internal/config"
)

// runCheck performs one liveness check and maps it to the exit status
func runCheck(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	config.InitLogger(cfg, stderr)

	p, err := newProber(cfg)
	if err != nil {
		return err
	}

	report := p.CheckHealth(ctx)
	logReport(report)

	if !report.Healthy() {
		return errUnhealthy
	}
	return nil
}

// runInitSession forces session initialization, optionally sending hint as
// the current cookie
func runInitSession(ctx context.Context, cfg *config.Config, hint string, stderr io.Writer) error {
	config.InitLogger(cfg, stderr)

	p, err := newProber(cfg)
	if err != nil {
		return err
	}

	report := p.InitializeSession(ctx, hint)
	logReport(report)

	if !report.Healthy() {
		return errUnhealthy
	}
	return nil
}
