package repository

import (
	"fmt"
	"log"

	"fieldserve/internal/core"

	pbCore "github.com/pocketbase/pocketbase/core"
)

type PBTechnicianRepo struct {
	app pbCore.App
}

func NewTechnicianRepo(app pbCore.App) core.TechnicianRepository {
	return &PBTechnicianRepo{app: app}
}

func (r *PBTechnicianRepo) toDomain(record *pbCore.Record) *core.Technician {
	tech := &core.Technician{
		ID:          record.Id,
		Name:        record.GetString("name"),
		Email:       record.Email(),
		Phone:       record.GetString("phone"),
		Active:      record.GetBool("active"),
		Verified:    record.GetBool("verified"),
		OpenForWork: record.GetBool("open_for_work"),
		FCMToken:    record.GetString("fcm_token"),
		AvgRating:   record.GetFloat("avg_rating"),
		ReviewCount: record.GetInt("review_count"),
		TotalJobs:   record.GetInt("total_jobs"),
	}

	var ratings []core.CategoryRating
	if err := record.UnmarshalJSONField("category_ratings", &ratings); err == nil {
		tech.CategoryRatings = ratings
	} else {
		log.Printf("⚠️ [TECH_REPO] malformed category_ratings on %s: %v", record.Id, err)
	}

	return tech
}

func (r *PBTechnicianRepo) GetByID(id string) (*core.Technician, error) {
	record, err := r.app.FindRecordById("technicians", id)
	if err != nil {
		return nil, fmt.Errorf("%w: technician %s", core.ErrNotFound, id)
	}
	return r.toDomain(record), nil
}

// UpdateRatingStats replaces the reputation projection wholesale with one
// recomputed snapshot. Nothing else on the record is touched.
func (r *PBTechnicianRepo) UpdateRatingStats(techID string, stats core.TechnicianStats) error {
	record, err := r.app.FindRecordById("technicians", techID)
	if err != nil {
		return fmt.Errorf("%w: technician %s", core.ErrNotFound, techID)
	}

	record.Set("avg_rating", stats.AvgRating)
	record.Set("review_count", stats.ReviewCount)
	record.Set("category_ratings", stats.CategoryRatings)

	return r.app.Save(record)
}

func (r *PBTechnicianRepo) ResetRatingStats(techID string) error {
	record, err := r.app.FindRecordById("technicians", techID)
	if err != nil {
		return fmt.Errorf("%w: technician %s", core.ErrNotFound, techID)
	}

	record.Set("avg_rating", 0)
	record.Set("review_count", 0)
	record.Set("total_jobs", 0)
	record.Set("category_ratings", []core.CategoryRating{})

	return r.app.Save(record)
}

// MarkJobCompleted bumps the lifetime job counter and re-opens the
// technician for new assignments.
func (r *PBTechnicianRepo) MarkJobCompleted(techID string) error {
	record, err := r.app.FindRecordById("technicians", techID)
	if err != nil {
		return fmt.Errorf("%w: technician %s", core.ErrNotFound, techID)
	}

	record.Set("total_jobs", record.GetInt("total_jobs")+1)
	record.Set("open_for_work", true)

	return r.app.Save(record)
}
