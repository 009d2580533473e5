package rulebased

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Rules is the keyword configuration of the classifier.
type Rules struct {
	Departments     []Category `yaml:"departments"`
	DocumentTypes   []Category `yaml:"document_types"`
	UrgencyKeywords []string   `yaml:"urgency_keywords"`
	UrgentTagTerms  []string   `yaml:"urgent_tag_terms"`
	DomainTerms     []string   `yaml:"domain_terms"`
	Locations       []string   `yaml:"locations"`
	Organizations   []string   `yaml:"organizations"`
	ActionPhrases   []string   `yaml:"action_phrases"`
	StopWords       []string   `yaml:"stop_words"`
}

func DefaultRules() (Rules, error) {
	return ParseRules(defaultRules)
}

// ParseRules decodes a YAML rules document. Keywords are lowercased so that
// matching against lowercased text stays case-insensitive.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("decode classifier rules: %w", err)
	}
	if len(r.Departments) == 0 || len(r.DocumentTypes) == 0 {
		return Rules{}, fmt.Errorf("classifier rules: departments and document_types are required")
	}
	for i := range r.Departments {
		r.Departments[i].Keywords = lowerAll(r.Departments[i].Keywords)
	}
	for i := range r.DocumentTypes {
		r.DocumentTypes[i].Keywords = lowerAll(r.DocumentTypes[i].Keywords)
	}
	r.UrgencyKeywords = lowerAll(r.UrgencyKeywords)
	r.UrgentTagTerms = lowerAll(r.UrgentTagTerms)
	r.DomainTerms = lowerAll(r.DomainTerms)
	r.Locations = lowerAll(r.Locations)
	r.Organizations = lowerAll(r.Organizations)
	r.ActionPhrases = lowerAll(r.ActionPhrases)
	r.StopWords = lowerAll(r.StopWords)
	return r, nil
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
