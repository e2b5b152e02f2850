package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/civicwatch/civicwatch/internal/analytics"
	"github.com/civicwatch/civicwatch/internal/app"
	"github.com/civicwatch/civicwatch/internal/config"
	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/feed"
)

var (
	analyzeTopN   int
	analyzeWindow int
	analyzeJSON   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print counts, hotspots and the trend for the stored reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		a, err := app.Open(cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.Store.Fetch(cmd.Context(), feed.Filter{})
		if err != nil {
			return err
		}

		opts := analytics.Options{TopN: cfg.Analytics.TopN, Window: cfg.Analytics.Window}
		if cmd.Flags().Changed("top") {
			opts.TopN = analyzeTopN
		}
		if cmd.Flags().Changed("window") {
			opts.Window = analyzeWindow
		}
		analysis := analytics.Analyze(report.Snapshot{Reports: report.Normalized(docs)}, opts)

		if analyzeJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analysis)
		}
		renderAnalysis(cmd.OutOrStdout(), analysis)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top", analytics.DefaultTopN, "number of hotspots to show")
	analyzeCmd.Flags().IntVar(&analyzeWindow, "window", analytics.DefaultWindow, "newest reports counted (0 for all)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the analysis as JSON")
}

var categoryColors = map[report.Category]*color.Color{
	report.CategoryNoise:     color.New(color.FgMagenta),
	report.CategoryCrowd:     color.New(color.FgYellow),
	report.CategoryTraffic:   color.New(color.FgBlue),
	report.CategoryPollution: color.New(color.FgGreen),
}

func renderAnalysis(w io.Writer, a analytics.Analysis) {
	bold := color.New(color.Bold)

	bold.Fprintf(w, "Reports: %d (window %d)\n", a.Total, a.Window)
	for _, cat := range report.Categories {
		c := categoryColors[cat]
		fmt.Fprintf(w, "  %s %d\n", c.Sprintf("%-10s", cat), a.Counts[cat])
	}

	bold.Fprintln(w, "Hotspots:")
	if len(a.Hotspots) == 0 {
		fmt.Fprintln(w, "  none")
	}
	top := 0
	if len(a.Hotspots) > 0 {
		top = a.Hotspots[0].Count
	}
	for i, h := range a.Hotspots {
		bar := strings.Repeat("#", heatWidth(h.Count, top))
		fmt.Fprintf(w, "  %d. %-20s %3d %s\n", i+1, h.Location, h.Count, color.RedString(bar))
	}

	trend := color.New(color.FgCyan)
	if !a.Trend.Detected() {
		trend = color.New(color.Faint)
	}
	trend.Fprintf(w, "Trend: %s\n", a.Summary)
}

// heatWidth scales count against the top hotspot onto ten columns.
func heatWidth(count, top int) int {
	if top <= 0 || count <= 0 {
		return 0
	}
	width := count * 10 / top
	if width == 0 {
		width = 1
	}
	return width
}
