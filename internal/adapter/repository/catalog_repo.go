package repository

import (
	"fmt"

	"fieldserve/internal/core"

	pbCore "github.com/pocketbase/pocketbase/core"
)

type PBCatalogRepo struct {
	app pbCore.App
}

func NewCatalogRepo(app pbCore.App) core.CatalogRepository {
	return &PBCatalogRepo{app: app}
}

func (r *PBCatalogRepo) GetCategory(id string) (*core.Category, error) {
	record, err := r.app.FindRecordById("categories", id)
	if err != nil {
		return nil, fmt.Errorf("%w: category %s", core.ErrNotFound, id)
	}
	return &core.Category{
		ID:        record.Id,
		Name:      record.GetString("name"),
		BasePrice: record.GetFloat("base_price"),
		Active:    record.GetBool("active"),
		SortOrder: record.GetInt("sort_order"),
	}, nil
}

func (r *PBCatalogRepo) GetService(id string) (*core.Service, error) {
	record, err := r.app.FindRecordById("services", id)
	if err != nil {
		return nil, fmt.Errorf("%w: service %s", core.ErrNotFound, id)
	}
	return &core.Service{
		ID:          record.Id,
		CategoryID:  record.GetString("category_id"),
		Name:        record.GetString("name"),
		BasePrice:   record.GetFloat("base_price"),
		Active:      record.GetBool("active"),
		Rating:      record.GetFloat("rating"),
		ReviewCount: record.GetInt("review_count"),
	}, nil
}

// UpdateServiceStats writes one recomputed service-quality snapshot.
func (r *PBCatalogRepo) UpdateServiceStats(serviceID string, stats core.ServiceStats) error {
	record, err := r.app.FindRecordById("services", serviceID)
	if err != nil {
		return fmt.Errorf("%w: service %s", core.ErrNotFound, serviceID)
	}

	record.Set("rating", stats.Rating)
	record.Set("review_count", stats.ReviewCount)

	return r.app.Save(record)
}
