package analytics

import (
	"fmt"
	"math"

	"github.com/civicwatch/civicwatch/internal/domain/report"
)

// TrendWindow is the size of each of the two compared windows.
const TrendWindow = 5

// Trend is the rising-category signal. Category is empty when no category
// is rising.
type Trend struct {
	Category   report.Category `json:"category,omitempty"`
	Confidence float64         `json:"confidence"`
}

// Detected reports whether a rising category was found.
func (t Trend) Detected() bool {
	return t.Category != ""
}

// DetectTrend compares category frequencies in the newest TrendWindow
// reports against the TrendWindow before them and picks the category with
// the largest positive increase. Ties go to the earlier category in
// report.Categories. Confidence is delta/TrendWindow capped at 1.
func DetectTrend(snap report.Snapshot) Trend {
	if snap.Len() < TrendWindow {
		return Trend{}
	}

	recent := frequencies(snap.Reports[:TrendWindow])
	end := 2 * TrendWindow
	if end > snap.Len() {
		end = snap.Len()
	}
	previous := frequencies(snap.Reports[TrendWindow:end])

	var (
		winner report.Category
		best   int
	)
	for _, c := range report.Categories {
		delta := recent[c] - previous[c]
		if delta > best {
			winner, best = c, delta
		}
	}
	if best <= 0 {
		return Trend{}
	}
	return Trend{
		Category:   winner,
		Confidence: math.Min(1, float64(best)/TrendWindow),
	}
}

func frequencies(reports []report.Report) map[report.Category]int {
	freq := make(map[report.Category]int, len(report.Categories))
	for _, r := range reports {
		freq[r.Category]++
	}
	return freq
}

// Summarize renders a trend as a one-line operator message.
func Summarize(t Trend) string {
	if !t.Detected() {
		return "No strong trend detected"
	}
	return fmt.Sprintf("Likely increase in %s (conf %d%%)", t.Category, int(math.Round(t.Confidence*100)))
}
