package service

import (
	"context"

	"magirls/internal/dto"
	"magirls/internal/repository"
)

type ReportService interface {
	DashboardSummary(ctx context.Context) (*dto.DashboardSummaryResponse, error)
}

type reportService struct {
	repo repository.ReportRepository
}

func NewReportService(repo repository.ReportRepository) ReportService {
	return &reportService{repo: repo}
}

func (s *reportService) DashboardSummary(ctx context.Context) (*dto.DashboardSummaryResponse, error) {
	sum, err := s.repo.DashboardSummary(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.DashboardSummaryResponse{
		InvestedAmount:  sum.InvestedAmount.Round(2),
		GrossSales:      sum.GrossSales.Round(2),
		CostOfGoodsSold: sum.CostOfGoodsSold.Round(2),
		Profit:          sum.Profit.Round(2),
	}, nil
}
