package constitution

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/complianceworxs/chiefstaff/server/internal/config"
)

// Violation is one rule breach found during validation.
type Violation struct {
	// Rule identifies the breached rule: forbidden_phrase | unsubstantiated_claim |
	// missing_disclaimer | spend_cap.
	Rule string `json:"rule"`

	// Detail explains the breach in terms an operator can act on.
	Detail string `json:"detail"`
}

// Verdict is the outcome of a validation pass.
type Verdict struct {
	Allowed    bool        `json:"allowed"`
	Violations []Violation `json:"violations,omitempty"`
}

// Validator enforces the constitutional constraints: content rules over
// outgoing drafts and a per-action spend cap. Rules are compiled once at
// construction; validation is read-only and safe for concurrent use.
type Validator struct {
	forbidden  []string
	claims     []*regexp.Regexp
	regulated  []*regexp.Regexp
	disclaimer *regexp.Regexp
	maxSpend   float64
}

// Default content rules applied when the config section is empty. The claim
// patterns catch absolute promises; the regulated patterns catch financial
// and health language that legally requires a disclaimer.
var (
	defaultForbidden = []string{
		"guaranteed results",
		"risk-free",
		"no obligation whatsoever",
	}
	defaultClaims = []string{
		`(?i)\b(always|never)\s+(works|fails)\b`,
		`(?i)\b100%\s+(safe|effective|accurate)\b`,
		`(?i)\bbest\s+in\s+the\s+world\b`,
	}
	defaultRegulated = []string{
		`(?i)\b(investment|returns?|yield|profit)\b.*\b(guarantee|promise)\b`,
		`(?i)\b(medical|health|cure|treatment)\s+(advice|claim)\b`,
	}
	defaultDisclaimer = `(?i)(not\s+financial\s+advice|consult\s+a\s+professional|results\s+may\s+vary)`
)

// New compiles a Validator from config. Invalid regexes fail construction so
// a bad rule never silently stops gating.
func New(cfg config.ConstitutionConfig) (*Validator, error) {
	v := &Validator{maxSpend: cfg.MaxActionSpendUSD}

	v.forbidden = cfg.ForbiddenPhrases
	if len(v.forbidden) == 0 {
		v.forbidden = defaultForbidden
	}

	var err error
	if v.claims, err = compileAll(cfg.ClaimPatterns, defaultClaims); err != nil {
		return nil, fmt.Errorf("constitution: claim_patterns: %w", err)
	}
	if v.regulated, err = compileAll(cfg.RegulatedPatterns, defaultRegulated); err != nil {
		return nil, fmt.Errorf("constitution: regulated_patterns: %w", err)
	}

	pat := cfg.DisclaimerPattern
	if pat == "" {
		pat = defaultDisclaimer
	}
	if v.disclaimer, err = regexp.Compile(pat); err != nil {
		return nil, fmt.Errorf("constitution: disclaimer_pattern: %w", err)
	}
	return v, nil
}

func compileAll(patterns, fallback []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		patterns = fallback
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// ValidateContent checks an outgoing draft against the content rules.
// All breaches are collected, not just the first, so a reviewer sees the
// complete fix list in one pass.
func (v *Validator) ValidateContent(draft string) Verdict {
	var violations []Violation
	lower := strings.ToLower(draft)

	for _, phrase := range v.forbidden {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			violations = append(violations, Violation{
				Rule:   "forbidden_phrase",
				Detail: fmt.Sprintf("draft contains forbidden phrase %q", phrase),
			})
		}
	}
	for _, re := range v.claims {
		if m := re.FindString(draft); m != "" {
			violations = append(violations, Violation{
				Rule:   "unsubstantiated_claim",
				Detail: fmt.Sprintf("unsubstantiated claim %q needs evidence or removal", m),
			})
		}
	}
	for _, re := range v.regulated {
		if m := re.FindString(draft); m != "" && !v.disclaimer.MatchString(draft) {
			violations = append(violations, Violation{
				Rule:   "missing_disclaimer",
				Detail: fmt.Sprintf("regulated language %q requires a disclaimer", m),
			})
		}
	}

	return Verdict{Allowed: len(violations) == 0, Violations: violations}
}

// ValidateSpend checks a proposed action cost against the per-action cap.
// A zero cap disables the check.
func (v *Validator) ValidateSpend(costUSD float64) Verdict {
	if v.maxSpend > 0 && costUSD > v.maxSpend {
		return Verdict{Violations: []Violation{{
			Rule:   "spend_cap",
			Detail: fmt.Sprintf("action cost $%.2f exceeds the per-action cap of $%.2f", costUSD, v.maxSpend),
		}}}
	}
	return Verdict{Allowed: true}
}
