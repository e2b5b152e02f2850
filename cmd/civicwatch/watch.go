package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/civicwatch/civicwatch/internal/analytics"
	"github.com/civicwatch/civicwatch/internal/app"
	"github.com/civicwatch/civicwatch/internal/config"
	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/domain/user"
	"github.com/civicwatch/civicwatch/internal/feed"
	"github.com/civicwatch/civicwatch/internal/ingest"
)

var watchOwner string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow one client's reports live, as their dashboard shows them",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(watchOwner) == "" {
			return errors.New("--owner is required")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, closeLog := newLogger(cfg, os.Stderr, os.Stderr)
		defer closeLog()

		a, err := app.Open(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return followOwner(ctx, a.Store, watchOwner, cfg.Ingest.RetryInterval, logger, func(v analytics.View) {
			renderClientView(out, watchOwner, v)
		})
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchOwner, "owner", "", "client id whose reports are followed")
}

// followOwner subscribes to owner's reports only and calls emit with the
// client view of every snapshot until ctx ends.
func followOwner(ctx context.Context, source feed.Source, owner string, retry time.Duration, logger *slog.Logger, emit func(analytics.View)) error {
	handle, err := ingest.New(source, ingest.Options{RetryInterval: retry, Logger: logger}).
		Subscribe(ctx, feed.Filter{OwnerID: owner})
	if err != nil {
		return err
	}
	defer handle.Close()

	principal := clientPrincipal(owner)
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-handle.Updates():
			emit(analytics.ViewFor(principal, snap, analytics.DefaultOptions()))
		case err := <-handle.Failures():
			if logger != nil {
				logger.Warn("feed_unavailable", "owner", owner, "error", err)
			}
		}
	}
}

func clientPrincipal(id string) user.Principal {
	return user.Principal{ID: id, Role: user.RoleClient}
}

func renderClientView(w io.Writer, owner string, v analytics.View) {
	color.New(color.Bold).Fprintf(w, "%s: %d reports\n", owner, len(v.Reports))
	for _, cat := range report.Categories {
		fmt.Fprintf(w, "  %s %d\n", categoryColors[cat].Sprintf("%-10s", cat), v.Counts[cat])
	}
	for _, b := range v.Buckets {
		bar := strings.Repeat("#", heatWidth(b.Count, topCount(v.Buckets)))
		fmt.Fprintf(w, "  %-20s %3d %s\n", b.Location, b.Count, color.RedString(bar))
	}
}

func topCount(buckets []analytics.HeatBucket) int {
	if len(buckets) == 0 {
		return 0
	}
	return buckets[0].Count
}
