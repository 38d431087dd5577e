package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lshigami/fluency/internal/model"
)

const (
	MetricAccuracy      = "accuracy"
	MetricFluency       = "fluency"
	MetricPronunciation = "pronunciation"
	MetricSpeed         = "speed"
	MetricComprehension = "comprehension"
	MetricConfidence    = "confidence"
)

var rubricMetrics = []string{MetricAccuracy, MetricFluency, MetricPronunciation, MetricSpeed, MetricComprehension}

var (
	// "Accuracy: 85", "**fluency score** = 72.5/100", "Speed:90%", "Accuracy (0-100): 85"
	metricPattern = regexp.MustCompile(`(?i)\b(accuracy|fluency|pronunciation|speed|comprehension|confidence)(?:[ _](?:score|level))?(?:\W{0,3}?\s*\([^)\n]*\))?\W{0,3}?\s*[:=]\s*\**\s*(-?\d+(?:\.\d+)?)`)
	// "accuracy_details: skipped a word; misread 'katten'"
	detailsPattern = regexp.MustCompile(`(?im)^[\s\-*#]*(accuracy|fluency|pronunciation|speed|comprehension)[ _]details\**\s*:\s*(.+)$`)
)

// Rubric is the structured result extracted from a language-model reply.
type Rubric struct {
	Metrics    model.Metrics
	Details    model.MetricDetails
	Confidence float64
	Warning    ParseWarning
}

// ParseRubric extracts the five metrics, optional details and the
// confidence from free-form text. It never fails: anything it cannot find
// is zero-filled and listed in the returned warning. The first occurrence
// of each metric wins; values are clamped to 0-100.
func ParseRubric(text string) Rubric {
	// scores never come from observation lines
	scored := detailsPattern.ReplaceAllString(text, "")

	found := make(map[string]float64)
	for _, match := range metricPattern.FindAllStringSubmatch(scored, -1) {
		name := strings.ToLower(match[1])
		if _, seen := found[name]; seen {
			continue
		}
		value, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}
		if name == MetricConfidence {
			value = confidencePercent(match[2], value)
		}
		found[name] = clampPercent(value)
	}

	var rubric Rubric
	rubric.Metrics = model.Metrics{
		Accuracy:      found[MetricAccuracy],
		Fluency:       found[MetricFluency],
		Pronunciation: found[MetricPronunciation],
		Speed:         found[MetricSpeed],
		Comprehension: found[MetricComprehension],
	}
	rubric.Confidence = found[MetricConfidence]

	for _, name := range append(rubricMetrics, MetricConfidence) {
		if _, ok := found[name]; !ok {
			rubric.Warning.Missing = append(rubric.Warning.Missing, name)
		}
	}

	for _, match := range detailsPattern.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(match[1])
		for _, item := range strings.Split(match[2], ";") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if rubric.Details == nil {
				rubric.Details = make(model.MetricDetails)
			}
			rubric.Details[name] = append(rubric.Details[name], item)
		}
	}
	return rubric
}

// confidencePercent stores confidence on the 0-100 scale. Models sometimes
// answer with a fraction such as 0.85; a value written with a decimal point
// and not above 1 is read that way.
func confidencePercent(raw string, value float64) float64 {
	if strings.Contains(raw, ".") && value >= 0 && value <= 1 {
		return value * 100
	}
	return value
}

func clampPercent(v float64) float64 {
	return min(max(v, 0), 100)
}
