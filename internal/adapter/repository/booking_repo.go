package repository

import (
	"fmt"

	"fieldserve/internal/core"

	"github.com/pocketbase/dbx"
	pbCore "github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
)

type PBBookingRepo struct {
	app pbCore.App
}

func NewBookingRepo(app pbCore.App) core.BookingRepository {
	return &PBBookingRepo{app: app}
}

// Mapping helper: Record -> Domain Model
func (r *PBBookingRepo) toDomain(record *pbCore.Record) *core.Booking {
	return &core.Booking{
		ID:             record.Id,
		CustomerID:     record.GetString("customer_id"),
		TechnicianID:   record.GetString("technician_id"),
		CategoryID:     record.GetString("category_id"),
		ServiceID:      record.GetString("service_id"),
		Status:         core.Status(record.GetString("status")),
		Price:          record.GetFloat("price"),
		FinalAmount:    record.GetFloat("final_amount"),
		ExtraReason:    record.GetString("extra_reason"),
		SecurityPin:    record.GetString("security_pin"),
		TechnicianNote: record.GetString("technician_note"),
		ProofImages:    record.GetStringSlice("proof_images"),
		ScheduledAt:    record.GetString("scheduled_at"),
		CompletedAt:    record.GetString("completed_at"),
		Notes:          record.GetString("notes"),
		Address:        record.GetString("address"),
		AddressDetails: record.GetString("address_details"),
		Lat:            record.GetFloat("lat"),
		Long:           record.GetFloat("long"),
		Version:        record.GetInt("version"),
		Created:        record.GetString("created"),
		Updated:        record.GetString("updated"),
	}
}

func (r *PBBookingRepo) GetByID(id string) (*core.Booking, error) {
	record, err := r.app.FindRecordById("bookings", id)
	if err != nil {
		return nil, fmt.Errorf("%w: booking %s", core.ErrNotFound, id)
	}
	return r.toDomain(record), nil
}

func (r *PBBookingRepo) Create(b *core.Booking) error {
	collection, err := r.app.FindCollectionByNameOrId("bookings")
	if err != nil {
		return err
	}

	record := pbCore.NewRecord(collection)
	record.Set("customer_id", b.CustomerID)
	record.Set("category_id", b.CategoryID)
	record.Set("status", string(b.Status))
	record.Set("price", b.Price)
	record.Set("scheduled_at", b.ScheduledAt)
	record.Set("notes", b.Notes)
	record.Set("address", b.Address)
	record.Set("address_details", b.AddressDetails)
	record.Set("version", 1)

	if b.ServiceID != "" {
		record.Set("service_id", b.ServiceID)
	}
	if b.Lat != 0 {
		record.Set("lat", b.Lat)
		record.Set("long", b.Long)
	}

	if err := r.app.Save(record); err != nil {
		return err
	}

	// Reflect generated identity and timestamps back to the domain model.
	b.ID = record.Id
	b.Version = record.GetInt("version")
	b.Created = record.GetString("created")
	b.Updated = record.GetString("updated")

	return nil
}

// ApplyTransition is the engine's single write path. Only the named fields
// are set, so records predating schema additions are never re-validated
// wholesale, and the version check rejects any writer that read a booking
// another transition has since moved. proofFiles are appended to the
// stored proof_images; existing filenames are preserved.
func (r *PBBookingRepo) ApplyTransition(id string, expectedVersion int, fields map[string]any, proofFiles []*filesystem.File) (*core.Booking, error) {
	record, err := r.app.FindRecordById("bookings", id)
	if err != nil {
		return nil, fmt.Errorf("%w: booking %s", core.ErrNotFound, id)
	}

	if record.GetInt("version") != expectedVersion {
		return nil, fmt.Errorf("%w: booking %s", core.ErrStaleState, id)
	}

	for k, v := range fields {
		record.Set(k, v)
	}
	record.Set("version", expectedVersion+1)

	if len(proofFiles) > 0 {
		existing := record.GetStringSlice("proof_images")
		combined := make([]any, 0, len(existing)+len(proofFiles))
		for _, name := range existing {
			combined = append(combined, name)
		}
		for _, f := range proofFiles {
			combined = append(combined, f)
		}
		record.Set("proof_images", combined)
	}

	if err := r.app.Save(record); err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}

	// Re-read so callers and downstream events see the persisted truth,
	// including generated file names and timestamps.
	saved, err := r.app.FindRecordById("bookings", id)
	if err != nil {
		return nil, fmt.Errorf("reload booking %s: %w", id, err)
	}
	return r.toDomain(saved), nil
}

func (r *PBBookingRepo) FindPending() ([]*core.Booking, error) {
	records, err := r.app.FindRecordsByFilter("bookings", "status = 'pending'", "-created", 0, 0, nil)
	if err != nil {
		return nil, err
	}
	return r.toDomainList(records), nil
}

func (r *PBBookingRepo) FindByCustomer(customerID string) ([]*core.Booking, error) {
	records, err := r.app.FindRecordsByFilter(
		"bookings",
		"customer_id = {:customerId}",
		"-created",
		0, 0,
		dbx.Params{"customerId": customerID},
	)
	if err != nil {
		return nil, err
	}
	return r.toDomainList(records), nil
}

func (r *PBBookingRepo) FindActiveByTechnician(techID string) ([]*core.Booking, error) {
	// Active = not completed and not cancelled.
	records, err := r.app.FindRecordsByFilter(
		"bookings",
		"technician_id = {:techId} && status != 'completed' && status != 'cancelled'",
		"-created",
		0, 0,
		dbx.Params{"techId": techID},
	)
	if err != nil {
		return nil, err
	}
	return r.toDomainList(records), nil
}

func (r *PBBookingRepo) toDomainList(records []*pbCore.Record) []*core.Booking {
	var bookings []*core.Booking
	for _, rec := range records {
		bookings = append(bookings, r.toDomain(rec))
	}
	return bookings
}
