package domain

import "math"

type DashboardStats struct {
	DocumentsToday         int          `json:"documents_today"`
	DocumentsYesterday     int          `json:"documents_yesterday"`
	DailyChangePercent     float64      `json:"daily_change_percent"`
	UrgentDocuments        int          `json:"urgent_documents"`
	TotalDocuments         int          `json:"total_documents"`
	ActiveDepartments      int          `json:"active_departments"`
	DepartmentDistribution []GroupCount `json:"department_distribution"`
	LanguageDistribution   []GroupCount `json:"language_distribution"`
}

type DepartmentShare struct {
	Department string  `json:"department"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type ProcessingEfficiency struct {
	TotalProcessed     int          `json:"total_processed"`
	AIProcessed        int          `json:"ai_processed"`
	AIProcessedPercent float64      `json:"ai_processed_percent"`
	AverageConfidence  float64      `json:"average_confidence"`
	LanguagesDetected  int          `json:"languages_detected"`
	LanguageBreakdown  []GroupCount `json:"language_breakdown"`
}

// PercentOf returns part as a percentage of whole rounded to one decimal.
func PercentOf(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(whole)) / 10
}

// DailyChange is the percentage change from yesterday to today. With no
// documents yesterday any upload today counts as a full 100% rise.
func DailyChange(today, yesterday int) float64 {
	if yesterday == 0 {
		if today == 0 {
			return 0
		}
		return 100
	}
	return PercentOf(today-yesterday, yesterday)
}
