package rulebased

import (
	"strings"
	"testing"
	"time"

	"github.com/kmrl/docintel/internal/core/domain"
)

func TestClassifyUrgentSafetyNotice(t *testing.T) {
	c := New()
	got := c.Classify("URGENT: immediate safety action required at Aluva station", "notice.txt")

	if got.Department != "Safety & Operations" {
		t.Fatalf("unexpected department: %q", got.Department)
	}
	if got.UrgencyLevel != domain.UrgencyHigh {
		t.Fatalf("unexpected urgency: %q", got.UrgencyLevel)
	}
	if domain.DeriveStatus(got) != domain.StatusUrgent {
		t.Fatalf("expected urgent status")
	}
	if len(got.Entities.Locations) != 1 || got.Entities.Locations[0] != "aluva" {
		t.Fatalf("unexpected locations: %#v", got.Entities.Locations)
	}
	if got.ProcessedWith != domain.ProcessedWithRuleBased || got.Confidence != 0.75 || got.Sentiment != domain.SentimentNeutral {
		t.Fatalf("unexpected fixed fields: %#v", got)
	}
	if !hasAll(got.Tags, "safety-&-operations", "txt", "station", "urgent") {
		t.Fatalf("unexpected tags: %#v", got.Tags)
	}
	if len(got.ActionItems) != 1 || got.ActionItems[0] != "URGENT: immediate safety action required at Aluva station" {
		t.Fatalf("unexpected action items: %#v", got.ActionItems)
	}
}

func TestClassifyFallsBackToGeneral(t *testing.T) {
	got := New().Classify("Lorem ipsum dolor sit amet", "note.txt")
	if got.Department != domain.DepartmentGeneral || got.DocumentType != domain.DocumentTypeGeneral {
		t.Fatalf("unexpected classification: %s / %s", got.Department, got.DocumentType)
	}
	if got.UrgencyLevel != domain.UrgencyLow {
		t.Fatalf("unexpected urgency: %q", got.UrgencyLevel)
	}
	if got.Summary != "Lorem ipsum dolor sit amet..." {
		t.Fatalf("unexpected summary: %q", got.Summary)
	}
	if got.BusinessImpact != "This general document affects General operations and requires appropriate follow-up action." {
		t.Fatalf("unexpected impact: %q", got.BusinessImpact)
	}
}

func TestClassifyTieKeepsFirstDeclaredCandidate(t *testing.T) {
	// "revenue" scores one point for both Finance and Operations.
	got := New().Classify("quarterly revenue", "x.txt")
	if got.Department != "Finance" {
		t.Fatalf("expected first declared department on tie, got %q", got.Department)
	}
}

func TestClassifyUsesFileNameForCategories(t *testing.T) {
	got := New().Classify("see attached", "vendor_invoice_march.pdf")
	if got.Department != "Procurement" || got.DocumentType != "Invoice" {
		t.Fatalf("unexpected classification: %s / %s", got.Department, got.DocumentType)
	}
	if domain.DeriveStatus(got) != domain.StatusPending {
		t.Fatalf("expected pending status")
	}
}

func TestClassifyUrgencyIgnoresFileName(t *testing.T) {
	got := New().Classify("routine note", "urgent_emergency_asap.txt")
	if got.UrgencyLevel != domain.UrgencyLow {
		t.Fatalf("urgency must only consider text, got %q", got.UrgencyLevel)
	}
}

func TestClassifyLongTextUsesTemplateSummary(t *testing.T) {
	text := strings.Repeat("Board meeting resolution recorded. ", 12)
	got := New().Classify(text, "minutes.docx")
	expected := "Document analysis for minutes.docx. Contains 420 characters of content related to general. Board Minutes requiring low priority attention."
	if got.Summary != expected {
		t.Fatalf("unexpected summary:\n%s", got.Summary)
	}
	if domain.DeriveStatus(got) != domain.StatusApproved {
		t.Fatalf("expected approved status for board minutes")
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]domain.Language{
		"Metro service notice":        domain.LanguageEnglish,
		"കൊച്ചി മെട്രോ":               domain.LanguageMalayalam,
		"Kochi Metro കൊച്ചി മെട്രോ":   domain.LanguageBilingual,
		"12345 !!!":                   domain.LanguageEnglish,
	}
	for text, expected := range cases {
		if got := DetectLanguage(text); got != expected {
			t.Fatalf("language(%q): expected %s, got %s", text, expected, got)
		}
	}
}

func TestClassifyEntities(t *testing.T) {
	text := "KMRL and Kochi Metro paid ₹1,50,000 and Rs. 2,000 plus $300 on 12/03/2024 and 2024-03-15 at Kaloor and MG Road. Again on 12/03/2024."
	got := New().Classify(text, "bill.pdf")

	if !equal(got.Entities.Dates, []string{"12/03/2024", "2024-03-15"}) {
		t.Fatalf("unexpected dates: %#v", got.Entities.Dates)
	}
	if !equal(got.Entities.Amounts, []string{"₹1,50,000", "Rs. 2,000", "$300"}) {
		t.Fatalf("unexpected amounts: %#v", got.Entities.Amounts)
	}
	if !equal(got.Entities.Locations, []string{"kaloor", "mg road"}) {
		t.Fatalf("unexpected locations: %#v", got.Entities.Locations)
	}
	if !equal(got.Entities.Organizations, []string{"kmrl", "kochi metro"}) {
		t.Fatalf("unexpected organizations: %#v", got.Entities.Organizations)
	}
}

func TestKeyTopicsRankByFrequencyThenFirstSeen(t *testing.T) {
	text := "signal track signal platform track signal with those gate zeta alpha beta gamma delta epsilon"
	got := New().Classify(text, "x.txt").KeyTopics
	expected := []string{"signal", "track", "platform", "gate", "zeta", "alpha", "beta", "gamma"}
	if !equal(got, expected) {
		t.Fatalf("unexpected topics: %#v", got)
	}
}

func TestActionItemsCappedAtFive(t *testing.T) {
	text := "Submit form A. Submit form B! Review plan C? Approve D. Implement E. Complete F. Nothing here."
	got := New().Classify(text, "x.txt").ActionItems
	expected := []string{"Submit form A", "Submit form B", "Review plan C", "Approve D", "Implement E"}
	if !equal(got, expected) {
		t.Fatalf("unexpected action items: %#v", got)
	}
}

func TestClassifyNeverFailsOnAdversarialInput(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t",
		"...!!!???",
		string([]byte{0xff, 0xfe, 0xfd}),
		strings.Repeat("ക", 5000),
		strings.Repeat("urgent emergency critical ", 1000),
		"\x00\x01\x02 Rs. $ ₹",
	}
	c := New()
	c.now = func() time.Time { return time.Unix(0, 0) }
	for _, in := range inputs {
		got := c.Classify(in, "")
		assertContained(t, got)
	}
}

func TestParseRulesRejectsEmptyTables(t *testing.T) {
	if _, err := ParseRules([]byte("urgency_keywords: [a]\n")); err == nil {
		t.Fatalf("expected error for rules without categories")
	}
	if _, err := ParseRules([]byte("departments: [")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDefaultRulesLowercased(t *testing.T) {
	rules, err := DefaultRules()
	if err != nil {
		t.Fatalf("default rules: %v", err)
	}
	if len(rules.Departments) != 7 || len(rules.DocumentTypes) != 8 {
		t.Fatalf("unexpected table sizes: %d / %d", len(rules.Departments), len(rules.DocumentTypes))
	}
	for _, d := range rules.Departments {
		if !domain.IsDepartment(d.Name) {
			t.Fatalf("department %q is not in the enumeration", d.Name)
		}
	}
	for _, dt := range rules.DocumentTypes {
		if !domain.IsDocumentType(dt.Name) {
			t.Fatalf("document type %q is not in the enumeration", dt.Name)
		}
	}
}

func assertContained(t *testing.T, got domain.AnalysisResult) {
	t.Helper()
	if !domain.IsDepartment(got.Department) || !domain.IsDocumentType(got.DocumentType) {
		t.Fatalf("classification out of enum: %s / %s", got.Department, got.DocumentType)
	}
	switch got.UrgencyLevel {
	case domain.UrgencyHigh, domain.UrgencyMedium, domain.UrgencyLow:
	default:
		t.Fatalf("urgency out of enum: %q", got.UrgencyLevel)
	}
	switch got.Language {
	case domain.LanguageEnglish, domain.LanguageMalayalam, domain.LanguageBilingual:
	default:
		t.Fatalf("language out of enum: %q", got.Language)
	}
	if got.Sentiment != domain.SentimentNeutral {
		t.Fatalf("unexpected sentiment: %q", got.Sentiment)
	}
	if got.Confidence < 0 || got.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", got.Confidence)
	}
	if len(got.KeyTopics) > domain.MaxKeyTopics || len(got.ActionItems) > domain.MaxActionItems {
		t.Fatalf("list caps exceeded: %d topics, %d actions", len(got.KeyTopics), len(got.ActionItems))
	}
	if got.Tags == nil || got.Entities.Dates == nil || got.Entities.Locations == nil {
		t.Fatalf("list fields must be non-nil")
	}
}

func hasAll(values []string, want ...string) bool {
	set := map[string]bool{}
	for _, v := range values {
		set[v] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
