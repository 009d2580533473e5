package rulebased

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/kmrl/docintel/internal/core/domain"
)

const (
	summaryTemplateThreshold = 300
	summaryPrefixRunes       = 250
)

var (
	datePattern   = regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|\d{4}-\d{2}-\d{2}`)
	amountPattern = regexp.MustCompile(`₹[\d,]+|\$[\d,]+|Rs\.?\s*[\d,]+`)
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Classifier is the deterministic analysis path. Classify has no failure mode.
type Classifier struct {
	rules     Rules
	stopWords map[string]struct{}
	now       func() time.Time
}

// New returns a classifier over the embedded rules table.
func New() *Classifier {
	rules, err := DefaultRules()
	if err != nil {
		panic(fmt.Sprintf("embedded classifier rules are invalid: %v", err))
	}
	return NewWithRules(rules)
}

func NewWithRules(rules Rules) *Classifier {
	stop := make(map[string]struct{}, len(rules.StopWords))
	for _, w := range rules.StopWords {
		stop[w] = struct{}{}
	}
	return &Classifier{rules: rules, stopWords: stop, now: time.Now}
}

func (c *Classifier) Classify(text, displayName string) domain.AnalysisResult {
	lowerText := strings.ToLower(text)
	lowerName := strings.ToLower(displayName)

	department := bestCategory(c.rules.Departments, lowerText, lowerName, domain.DepartmentGeneral)
	docType := bestCategory(c.rules.DocumentTypes, lowerText, lowerName, domain.DocumentTypeGeneral)
	urgency := urgencyLevel(countPresent(c.rules.UrgencyKeywords, lowerText))

	return domain.AnalysisResult{
		Summary:      summarize(text, displayName, department, docType, urgency),
		KeyTopics:    c.keyTopics(lowerText),
		Department:   domain.CanonicalDepartment(department),
		DocumentType: domain.CanonicalDocumentType(docType),
		UrgencyLevel: urgency,
		Language:     DetectLanguage(text),
		Entities: domain.Entities{
			Dates:         uniqueMatches(datePattern, text),
			Amounts:       uniqueMatches(amountPattern, text),
			Locations:     presentInOrder(c.rules.Locations, lowerText),
			Organizations: presentInOrder(c.rules.Organizations, lowerText),
		},
		ActionItems:    c.actionItems(text),
		Tags:           c.tags(lowerText, department, docType, displayName),
		Sentiment:      domain.SentimentNeutral,
		BusinessImpact: fmt.Sprintf("This %s affects %s operations and requires appropriate follow-up action.", strings.ToLower(docType), department),
		Confidence:     domain.DefaultConfidence,
		ProcessedWith:  domain.ProcessedWithRuleBased,
		ProcessedAt:    c.now(),
	}
}

// bestCategory scores each candidate by the number of its keywords present in
// the text or the file name. Only a strictly higher score replaces the current
// pick, so ties keep the earlier candidate.
func bestCategory(candidates []Category, lowerText, lowerName, fallback string) string {
	best, bestScore := fallback, 0
	for _, cand := range candidates {
		score := 0
		for _, kw := range cand.Keywords {
			if strings.Contains(lowerText, kw) || strings.Contains(lowerName, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = cand.Name, score
		}
	}
	return best
}

func urgencyLevel(score int) domain.UrgencyLevel {
	switch {
	case score > 2:
		return domain.UrgencyHigh
	case score > 0:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// DetectLanguage reports Bilingual when both Latin letters and Malayalam code
// points occur, Malayalam when only the latter do, and English otherwise.
func DetectLanguage(text string) domain.Language {
	hasLatin, hasMalayalam := false, false
	for _, r := range text {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLatin = true
		case r >= 0x0D00 && r <= 0x0D7F:
			hasMalayalam = true
		}
		if hasLatin && hasMalayalam {
			return domain.LanguageBilingual
		}
	}
	if hasMalayalam {
		return domain.LanguageMalayalam
	}
	return domain.LanguageEnglish
}

func summarize(text, displayName, department, docType string, urgency domain.UrgencyLevel) string {
	length := utf8.RuneCountInString(text)
	if length > summaryTemplateThreshold {
		return fmt.Sprintf(
			"Document analysis for %s. Contains %d characters of content related to %s. %s requiring %s priority attention.",
			displayName, length, strings.ToLower(department), docType, urgency,
		)
	}
	return domain.TruncateRunes(text, summaryPrefixRunes) + "..."
}

type wordCount struct {
	word  string
	count int
}

// keyTopics ranks words longer than three runes by frequency. Words with equal
// counts keep the order in which they first appeared.
func (c *Classifier) keyTopics(lowerText string) []string {
	words := strings.FieldsFunc(lowerText, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_')
	})

	index := map[string]int{}
	var counts []wordCount
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if _, stop := c.stopWords[w]; stop {
			continue
		}
		if i, ok := index[w]; ok {
			counts[i].count++
			continue
		}
		index[w] = len(counts)
		counts = append(counts, wordCount{word: w, count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].count > counts[j].count })

	topics := make([]string, 0, domain.MaxKeyTopics)
	for _, wc := range counts {
		if len(topics) == domain.MaxKeyTopics {
			break
		}
		topics = append(topics, wc.word)
	}
	return topics
}

func (c *Classifier) actionItems(text string) []string {
	items := make([]string, 0, domain.MaxActionItems)
	for _, sentence := range sentenceSplit.Split(text, -1) {
		if len(items) == domain.MaxActionItems {
			break
		}
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		for _, phrase := range c.rules.ActionPhrases {
			if strings.Contains(lower, phrase) {
				items = append(items, trimmed)
				break
			}
		}
	}
	return items
}

func (c *Classifier) tags(lowerText, department, docType, displayName string) []string {
	var tags []string
	seen := map[string]struct{}{}
	add := func(tag string) {
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	if department != domain.DepartmentGeneral {
		add(slug(department))
	}
	if docType != domain.DocumentTypeGeneral {
		add(slug(docType))
	}
	add(strings.ToLower(strings.TrimPrefix(filepath.Ext(displayName), ".")))
	for _, term := range c.rules.DomainTerms {
		if strings.Contains(lowerText, term) {
			add(term)
		}
	}
	if countPresent(c.rules.UrgentTagTerms, lowerText) > 0 {
		add("urgent")
	}
	if tags == nil {
		return []string{}
	}
	return tags
}

func slug(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(name), "-")
}

func countPresent(keywords []string, lowerText string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lowerText, kw) {
			n++
		}
	}
	return n
}

// presentInOrder returns the lookup entries found in the text, in lookup order.
func presentInOrder(lookup []string, lowerText string) []string {
	found := []string{}
	for _, entry := range lookup {
		if strings.Contains(lowerText, entry) {
			found = append(found, entry)
		}
	}
	return found
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, m := range re.FindAllString(text, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
