package ollama

import (
	"strings"

	"github.com/kmrl/docintel/internal/core/domain"
)

const DefaultPromptMaxChars = 8000

func buildAnalysisPrompt(text, displayName string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultPromptMaxChars
	}
	snippet := domain.TruncateRunes(text, maxChars)

	return `You are an AI assistant analyzing documents for KMRL (Kochi Metro Rail Limited).

Document: ` + displayName + `
Content: ` + snippet + `

Analyze this document and write a business-oriented summary rather than repeating the extracted text.

Return ONLY a valid JSON object with exactly these fields:
{
  "summary": "3-4 sentences on what the document is about, its purpose, key findings and business impact",
  "keyTopics": ["3-5 main business topics"],
  "department": "one of: ` + strings.Join(domain.Departments, ", ") + `",
  "documentType": "one of: ` + strings.Join(domain.DocumentTypes, ", ") + `",
  "urgencyLevel": "high, medium or low based on business priority and deadlines",
  "language": "English, Malayalam or Bilingual",
  "entities": {
    "dates": ["important dates"],
    "amounts": ["monetary amounts with currency"],
    "locations": ["relevant locations or stations"],
    "organizations": ["companies or departments mentioned"]
  },
  "actionItems": ["specific tasks, deadlines or actions required"],
  "tags": ["5-8 tags for categorization"],
  "sentiment": "positive, negative or neutral",
  "businessImpact": "how this document affects KMRL operations",
  "confidence": 0.85
}

For invoices focus on vendor, amount, items purchased and payment terms.
For safety documents focus on safety measures, affected areas and compliance requirements.
For policies focus on policy changes, affected personnel and implementation timeline.
No markdown, no extra keys.
`
}
