package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kmrl/docintel/internal/core/domain"
	"github.com/kmrl/docintel/internal/core/ports"
)

type StatsUseCase struct {
	repo ports.DocumentRepository
	now  func() time.Time
}

func NewStatsUseCase(repo ports.DocumentRepository) *StatsUseCase {
	return &StatsUseCase{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (uc *StatsUseCase) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	startOfToday := uc.now().Truncate(24 * time.Hour)
	startOfYesterday := startOfToday.Add(-24 * time.Hour)

	today, err := uc.repo.Count(ctx, domain.DocumentFilter{CreatedFrom: startOfToday})
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count today: %w", err)
	}
	yesterday, err := uc.repo.Count(ctx, domain.DocumentFilter{CreatedFrom: startOfYesterday, CreatedTo: startOfToday})
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count yesterday: %w", err)
	}
	urgent, err := uc.repo.Count(ctx, domain.DocumentFilter{Status: domain.StatusUrgent})
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count urgent: %w", err)
	}
	total, err := uc.repo.Count(ctx, domain.DocumentFilter{})
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("count total: %w", err)
	}
	departments, err := uc.repo.CountByGroup(ctx, domain.GroupByDepartment, domain.DocumentFilter{})
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("group by department: %w", err)
	}
	languages, err := uc.repo.CountByGroup(ctx, domain.GroupByLanguage, domain.DocumentFilter{})
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("group by language: %w", err)
	}

	return domain.DashboardStats{
		DocumentsToday:         today,
		DocumentsYesterday:     yesterday,
		DailyChangePercent:     domain.DailyChange(today, yesterday),
		UrgentDocuments:        urgent,
		TotalDocuments:         total,
		ActiveDepartments:      len(departments),
		DepartmentDistribution: departments,
		LanguageDistribution:   languages,
	}, nil
}

func (uc *StatsUseCase) DepartmentDistribution(ctx context.Context) ([]domain.DepartmentShare, error) {
	groups, err := uc.repo.CountByGroup(ctx, domain.GroupByDepartment, domain.DocumentFilter{})
	if err != nil {
		return nil, fmt.Errorf("group by department: %w", err)
	}
	total := 0
	for _, group := range groups {
		total += group.Count
	}
	shares := make([]domain.DepartmentShare, 0, len(groups))
	for _, group := range groups {
		shares = append(shares, domain.DepartmentShare{
			Department: group.Key,
			Count:      group.Count,
			Percentage: domain.PercentOf(group.Count, total),
		})
	}
	return shares, nil
}

func (uc *StatsUseCase) ProcessingEfficiency(ctx context.Context) (domain.ProcessingEfficiency, error) {
	processed := domain.DocumentFilter{ProcessedOnly: true}

	total, err := uc.repo.Count(ctx, processed)
	if err != nil {
		return domain.ProcessingEfficiency{}, fmt.Errorf("count processed: %w", err)
	}
	aiFilter := processed
	aiFilter.ProcessedWith = domain.ProcessedWithAI
	aiProcessed, err := uc.repo.Count(ctx, aiFilter)
	if err != nil {
		return domain.ProcessingEfficiency{}, fmt.Errorf("count ai processed: %w", err)
	}
	confidence, err := uc.repo.AverageConfidence(ctx, processed)
	if err != nil {
		return domain.ProcessingEfficiency{}, fmt.Errorf("average confidence: %w", err)
	}
	languages, err := uc.repo.CountByGroup(ctx, domain.GroupByLanguage, processed)
	if err != nil {
		return domain.ProcessingEfficiency{}, fmt.Errorf("group by language: %w", err)
	}

	return domain.ProcessingEfficiency{
		TotalProcessed:     total,
		AIProcessed:        aiProcessed,
		AIProcessedPercent: domain.PercentOf(aiProcessed, total),
		AverageConfidence:  confidence,
		LanguagesDetected:  len(languages),
		LanguageBreakdown:  languages,
	}, nil
}
