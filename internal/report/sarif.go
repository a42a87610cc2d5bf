package report

import (
	"encoding/json"
	"fmt"

	"audioqc/internal/safeio"
	"audioqc/internal/scoring"
)

// SARIF 2.1.0 document model, limited to the fields the report uses.
type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

// statuses whose findings read as defects rather than warnings.
var sarifErrorStatuses = map[scoring.Status]struct{}{
	scoring.StatusSuspicious: {},
	scoring.StatusClipped:    {},
	scoring.StatusIncomplete: {},
}

// WriteSARIF emits one SARIF result per non-Good file, with the status as
// the rule identifier.
func WriteSARIF(analyses []scoring.Analysis, path string, safeMode bool) error {
	rules := make([]sarifRule, 0)
	seenRules := make(map[scoring.Status]struct{})
	results := make([]sarifResult, 0)

	for _, a := range sortedByScore(analyses) {
		if a.Status == scoring.StatusGood {
			continue
		}
		if _, ok := seenRules[a.Status]; !ok {
			seenRules[a.Status] = struct{}{}
			rules = append(rules, sarifRule{
				ID:               string(a.Status),
				ShortDescription: sarifMessage{Text: a.Status.Label()},
			})
		}
		level := "warning"
		if _, ok := sarifErrorStatuses[a.Status]; ok {
			level = "error"
		}
		results = append(results, sarifResult{
			RuleID: string(a.Status),
			Level:  level,
			Message: sarifMessage{
				Text: fmt.Sprintf("score %d/99: %s", a.QualityScore, a.Notes),
			},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: a.FilePath},
				},
			}},
		})
	}

	doc := sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "audioqc", Rules: rules}},
			Results: results,
		}},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sarif: %w", err)
	}
	return safeio.AtomicWriteFile(path, data, safeMode)
}
