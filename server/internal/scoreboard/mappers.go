package scoreboard

import (
	"regexp"
	"strconv"
	"strings"
)

// BriefFacts is what the mappers recover from one agent brief.
type BriefFacts struct {
	AutoResolvePct  float64
	MTTRMin         float64
	WeeklyRevenue   float64
	RevenuePerSpend float64
	Bottleneck      string

	// Baseline is true when the brief is a calibration/fallback skeleton;
	// its numbers are fleet baselines, not live values, and must not feed
	// the aggregates.
	Baseline bool
}

// The brief metric lines are a stable contract with the agent's renderer.
var (
	autonomyRe    = regexp.MustCompile(`(?m)^Autonomy: ([0-9.]+)%`)
	mttrRe        = regexp.MustCompile(`(?m)^MTTR: ([0-9.]+)min`)
	revenueRe     = regexp.MustCompile(`(?m)^Weekly Revenue: \$([0-9.]+)`)
	revPerSpendRe = regexp.MustCompile(`(?m)^Revenue per \$ Ops Spend: \$([0-9.]+)`)
	bottleneckRe  = regexp.MustCompile(`(?m)^Bottleneck: (.+)$`)
)

// ParseBrief extracts the labelled metric lines from a rendered brief.
// Missing lines leave the zero value; a malformed brief is not an error,
// the facts are simply sparse.
func ParseBrief(text string) BriefFacts {
	f := BriefFacts{
		AutoResolvePct:  matchFloat(autonomyRe, text),
		MTTRMin:         matchFloat(mttrRe, text),
		WeeklyRevenue:   matchFloat(revenueRe, text),
		RevenuePerSpend: matchFloat(revPerSpendRe, text),
	}
	if m := bottleneckRe.FindStringSubmatch(text); m != nil {
		f.Bottleneck = strings.TrimSpace(m[1])
	}
	if strings.Contains(text, "fleet baselines") {
		f.Baseline = true
	}
	return f
}

func matchFloat(re *regexp.Regexp, text string) float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}
