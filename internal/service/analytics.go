package service

import (
	"time"

	"fieldserve/internal/core"
)

type AnalyticsService struct {
	repo core.AnalyticsRepository
}

func NewAnalyticsService(repo core.AnalyticsRepository) core.AnalyticsService {
	return &AnalyticsService{repo: repo}
}

func (s *AnalyticsService) GetDashboardStats() (*core.DashboardStats, error) {
	stats := &core.DashboardStats{}

	today := time.Now().Format("2006-01-02")
	bookingsToday, _ := s.repo.CountBookings("created >= '" + today + " 00:00:00'")
	stats.BookingsToday = int(bookingsToday)

	pendingCount, _ := s.repo.CountBookings("status = 'pending'")
	stats.PendingCount = int(pendingCount)

	completedCount, _ := s.repo.CountBookings("status = 'completed'")
	stats.CompletedCount = int(completedCount)

	// Same-day completion rate.
	if stats.BookingsToday > 0 {
		completedToday, _ := s.repo.CountBookings("created >= '" + today + " 00:00:00' AND status = 'completed'")
		stats.CompletionRate = (float64(completedToday) / float64(stats.BookingsToday)) * 100
	}

	return stats, nil
}

func (s *AnalyticsService) GetTopTechnicians(limit int) ([]core.TechRanking, error) {
	return s.repo.TopTechnicians(limit)
}
