package repository

import (
	"fieldserve/internal/core"

	"github.com/pocketbase/dbx"
	pbCore "github.com/pocketbase/pocketbase/core"
)

type PBAnalyticsRepo struct {
	app pbCore.App
}

func NewAnalyticsRepo(app pbCore.App) core.AnalyticsRepository {
	return &PBAnalyticsRepo{app: app}
}

func (r *PBAnalyticsRepo) CountBookings(filter string) (int64, error) {
	return r.app.CountRecords("bookings", dbx.NewExp(filter))
}

// TopTechnicians ranks active technicians by reputation, then by lifetime
// jobs. The projection columns are maintained by the rating aggregator so
// this is a straight indexed read, no joins.
func (r *PBAnalyticsRepo) TopTechnicians(limit int) ([]core.TechRanking, error) {
	var results []core.TechRanking

	err := r.app.DB().Select(
		"id as technician_id",
		"name",
		"avg_rating",
		"total_jobs",
	).
		From("technicians").
		Where(dbx.HashExp{"active": true}).
		OrderBy("avg_rating DESC", "total_jobs DESC").
		Limit(int64(limit)).
		All(&results)

	if err != nil {
		return nil, err
	}
	return results, nil
}
