package signal

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/complianceworxs/chiefstaff/pkg/types"
)

// rule maps a set of trigger keywords to a category and severity. Confidence
// grows with the number of distinct keyword hits, starting from base.
type rule struct {
	category string
	severity string
	base     float64
	keywords []string
}

// The classification table. Order matters: the first rule with the most hits
// wins, so more specific rules sit above broader ones.
var rules = []rule{
	{
		category: types.CategoryInfrastructure,
		severity: types.SeverityCritical,
		base:     0.7,
		keywords: []string{"outage", "down", "unreachable", "5xx", "crash", "timeout"},
	},
	{
		category: types.CategoryFinance,
		severity: types.SeverityWarning,
		base:     0.6,
		keywords: []string{"budget", "overspend", "spend", "cost", "invoice", "burn"},
	},
	{
		category: types.CategoryRevenue,
		severity: types.SeverityWarning,
		base:     0.55,
		keywords: []string{"revenue", "churn", "refund", "conversion", "pipeline", "deal"},
	},
	{
		category: types.CategoryCompliance,
		severity: types.SeverityCritical,
		base:     0.65,
		keywords: []string{"compliance", "gdpr", "violation", "audit", "regulator", "breach"},
	},
	{
		category: types.CategoryContent,
		severity: types.SeverityInfo,
		base:     0.5,
		keywords: []string{"draft", "post", "article", "newsletter", "publish", "copy"},
	},
	{
		category: types.CategoryMarketing,
		severity: types.SeverityInfo,
		base:     0.5,
		keywords: []string{"campaign", "ctr", "impressions", "ad", "seo", "engagement"},
	},
	{
		category: types.CategoryOperations,
		severity: types.SeverityWarning,
		base:     0.5,
		keywords: []string{"backlog", "queue", "stuck", "delay", "bottleneck", "overdue"},
	},
}

// Classifier turns raw text into typed signals. It is stateless and safe for
// concurrent use.
type Classifier struct {
	now func() time.Time
}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{now: time.Now}
}

// Classify builds a Signal from free-form text. The best-matching rule sets
// category, severity, and confidence; text that matches nothing falls back to
// an operations/info signal at low confidence so it still reaches the queue
// for a human to look at.
func (c *Classifier) Classify(source, title, detail string) *types.Signal {
	text := strings.ToLower(title + " " + detail)

	var (
		best     *rule
		bestHits int
	)
	for i := range rules {
		hits := 0
		for _, kw := range rules[i].keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = &rules[i]
			bestHits = hits
		}
	}

	sig := &types.Signal{
		ID:        uuid.NewString(),
		Source:    source,
		Title:     title,
		Detail:    detail,
		CreatedAt: c.now().UTC(),
	}
	if best == nil {
		sig.Category = types.CategoryOperations
		sig.Severity = types.SeverityInfo
		sig.Confidence = 0.25
		return sig
	}

	sig.Category = best.category
	sig.Severity = best.severity
	sig.Confidence = confidence(best.base, bestHits)

	// Urgency words bump severity one notch regardless of category.
	if sig.Severity != types.SeverityCritical && containsAny(text, "urgent", "immediately", "severe", "emergency") {
		sig.Severity = escalateSeverity(sig.Severity)
	}
	return sig
}

// Threshold builds a fully-specified signal for a KPI threshold breach
// detected by the server itself. No keyword matching: the caller knows
// exactly what happened, so confidence is 1.
func (c *Classifier) Threshold(source, category, severity, title, metric string, value float64) *types.Signal {
	return &types.Signal{
		ID:         uuid.NewString(),
		Source:     source,
		Category:   category,
		Severity:   severity,
		Title:      title,
		Metric:     metric,
		Value:      value,
		Confidence: 1,
		CreatedAt:  c.now().UTC(),
	}
}

// confidence grows by 0.1 per extra keyword hit, capped at 0.95.
func confidence(base float64, hits int) float64 {
	conf := base + 0.1*float64(hits-1)
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func escalateSeverity(sev string) string {
	switch sev {
	case types.SeverityInfo:
		return types.SeverityWarning
	case types.SeverityWarning:
		return types.SeverityCritical
	}
	return sev
}
