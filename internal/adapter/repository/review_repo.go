package repository

import (
	"fmt"

	"fieldserve/internal/core"

	"github.com/pocketbase/dbx"
	pbCore "github.com/pocketbase/pocketbase/core"
)

type PBReviewRepo struct {
	app pbCore.App
}

func NewReviewRepo(app pbCore.App) core.ReviewRepository {
	return &PBReviewRepo{app: app}
}

func (r *PBReviewRepo) toDomain(record *pbCore.Record) *core.Review {
	return &core.Review{
		ID:               record.Id,
		BookingID:        record.GetString("booking_id"),
		CustomerID:       record.GetString("customer_id"),
		TechnicianID:     record.GetString("technician_id"),
		ServiceID:        record.GetString("service_id"),
		CategoryID:       record.GetString("category_id"),
		CategoryName:     record.GetString("category_name"),
		Rating:           record.GetInt("rating"),
		TechnicianRating: record.GetInt("technician_rating"),
		Comment:          record.GetString("comment"),
		Created:          record.GetString("created"),
		Updated:          record.GetString("updated"),
	}
}

func (r *PBReviewRepo) GetByID(id string) (*core.Review, error) {
	record, err := r.app.FindRecordById("reviews", id)
	if err != nil {
		return nil, fmt.Errorf("%w: review %s", core.ErrNotFound, id)
	}
	return r.toDomain(record), nil
}

func (r *PBReviewRepo) FindByBooking(bookingID string) (*core.Review, error) {
	records, err := r.app.FindRecordsByFilter(
		"reviews",
		"booking_id = {:bookingId}",
		"", 1, 0,
		dbx.Params{"bookingId": bookingID},
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no review for booking %s", core.ErrNotFound, bookingID)
	}
	return r.toDomain(records[0]), nil
}

func (r *PBReviewRepo) FindByTechnician(techID string) ([]*core.Review, error) {
	records, err := r.app.FindRecordsByFilter(
		"reviews",
		"technician_id = {:techId}",
		"-created",
		0, 0,
		dbx.Params{"techId": techID},
	)
	if err != nil {
		return nil, err
	}
	return r.toDomainList(records), nil
}

func (r *PBReviewRepo) FindByService(serviceID string) ([]*core.Review, error) {
	records, err := r.app.FindRecordsByFilter(
		"reviews",
		"service_id = {:serviceId}",
		"-created",
		0, 0,
		dbx.Params{"serviceId": serviceID},
	)
	if err != nil {
		return nil, err
	}
	return r.toDomainList(records), nil
}

func (r *PBReviewRepo) Create(rv *core.Review) error {
	collection, err := r.app.FindCollectionByNameOrId("reviews")
	if err != nil {
		return err
	}

	record := pbCore.NewRecord(collection)
	record.Set("booking_id", rv.BookingID)
	record.Set("customer_id", rv.CustomerID)
	record.Set("technician_id", rv.TechnicianID)
	record.Set("category_id", rv.CategoryID)
	record.Set("category_name", rv.CategoryName)
	record.Set("rating", rv.Rating)
	record.Set("technician_rating", rv.TechnicianRating)
	record.Set("comment", rv.Comment)
	if rv.ServiceID != "" {
		record.Set("service_id", rv.ServiceID)
	}

	// The unique index on booking_id backs the one-review-per-booking
	// invariant even if two creates race past the service-level check.
	if err := r.app.Save(record); err != nil {
		return err
	}

	rv.ID = record.Id
	rv.Created = record.GetString("created")
	rv.Updated = record.GetString("updated")
	return nil
}

func (r *PBReviewRepo) Update(rv *core.Review) error {
	record, err := r.app.FindRecordById("reviews", rv.ID)
	if err != nil {
		return fmt.Errorf("%w: review %s", core.ErrNotFound, rv.ID)
	}

	record.Set("rating", rv.Rating)
	record.Set("technician_rating", rv.TechnicianRating)
	record.Set("comment", rv.Comment)

	return r.app.Save(record)
}

func (r *PBReviewRepo) Delete(id string) error {
	record, err := r.app.FindRecordById("reviews", id)
	if err != nil {
		return fmt.Errorf("%w: review %s", core.ErrNotFound, id)
	}
	return r.app.Delete(record)
}

func (r *PBReviewRepo) toDomainList(records []*pbCore.Record) []*core.Review {
	var reviews []*core.Review
	for _, rec := range records {
		reviews = append(reviews, r.toDomain(rec))
	}
	return reviews
}
