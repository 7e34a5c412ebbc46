package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chapterline/continuity/internal/story"
)

// locationPattern matches proper names with a place-type suffix, the naming
// convention the worldbuilding geography registry uses.
var locationPattern = regexp.MustCompile(`\b([A-Z][a-z]+(?: [A-Z][a-z]+)* (?:City|Forest|Castle|Keep|Vale|Harbor|Mountains|Isle|Tower|Plains))\b`)

// checkWorld tests every registered world rule against the chapter text by
// keyword co-occurrence, and flags locations missing from the geography
// registry.
func (v *Validator) checkWorld(st *story.Story, ch Chapter) aspectReport {
	var findings []Finding
	lower := strings.ToLower(ch.Text)

	rules := make([]story.WorldRule, 0, len(st.Worldbuilding.MagicSystem)+len(st.Worldbuilding.Hierarchy))
	rules = append(rules, st.Worldbuilding.MagicSystem...)
	rules = append(rules, st.Worldbuilding.Hierarchy...)

	for _, rule := range rules {
		if !ruleViolated(rule, lower) {
			continue
		}
		findings = append(findings, Finding{
			Code:     CodeWorldRuleViolation,
			Severity: severityFromImportance(rule.Importance),
			Aspect:   AspectWorld,
			Chapter:  ch.Number,
			Subject:  rule.ID,
			Message:  fmt.Sprintf("chapter %d contradicts world rule %q (%s)", ch.Number, rule.ID, rule.Description),
		})
	}

	for _, loc := range locationPattern.FindAllString(ch.Text, -1) {
		if _, known := st.Worldbuilding.Geography[loc]; known {
			continue
		}
		findings = append(findings, Finding{
			Code:     CodeMinorInconsistency,
			Severity: SeverityLow,
			Aspect:   AspectWorld,
			Chapter:  ch.Number,
			Subject:  loc,
			Message:  fmt.Sprintf("location %q is not in the geography registry", loc),
		})
	}

	return aspectReport{findings: findings, confidence: confidenceFor(findings)}
}

// ruleViolated looks for co-occurrence of the rule's aspect keyword with a
// phrase contradicting its expected value.
func ruleViolated(rule story.WorldRule, lowerText string) bool {
	aspect := strings.ToLower(strings.TrimSpace(rule.Aspect))
	expected := strings.ToLower(strings.TrimSpace(rule.Expected))
	if aspect == "" || expected == "" {
		return false
	}
	if !strings.Contains(lowerText, aspect) {
		return false
	}

	contradictions := []string{
		"un" + expected,
		"not " + expected,
		"no longer " + expected,
		"never " + expected,
	}
	for _, c := range contradictions {
		if strings.Contains(lowerText, c) {
			return true
		}
	}
	return false
}

func severityFromImportance(importance string) Severity {
	switch strings.ToLower(importance) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "low":
		return SeverityLow
	default:
		return SeverityMedium
	}
}
