package service

import (
	"context"
	"errors"
	"fmt"

	"fieldserve/internal/core"
)

// ReviewManager gates review mutations: a review exists only for a
// completed booking, only from the owning customer, at most once. Every
// create, update and delete hands the affected review to the aggregator
// synchronously.
type ReviewManager struct {
	reviews    core.ReviewRepository
	bookings   core.BookingRepository
	catalog    core.CatalogRepository
	aggregator core.RatingAggregator
	realtime   core.RealtimePublisher
}

func NewReviewManager(
	reviews core.ReviewRepository,
	bookings core.BookingRepository,
	catalog core.CatalogRepository,
	aggregator core.RatingAggregator,
	realtime core.RealtimePublisher,
) core.ReviewService {
	return &ReviewManager{
		reviews:    reviews,
		bookings:   bookings,
		catalog:    catalog,
		aggregator: aggregator,
		realtime:   realtime,
	}
}

func (m *ReviewManager) Create(ctx context.Context, customerID, bookingID string, rating, technicianRating int, comment string) (*core.Review, error) {
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	if err := validateRating(technicianRating); err != nil {
		return nil, err
	}

	b, err := m.bookings.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: booking %s", core.ErrNotFound, bookingID)
	}
	if b.CustomerID != customerID {
		return nil, fmt.Errorf("%w: not your booking", core.ErrForbidden)
	}
	if b.Status != core.StatusCompleted {
		return nil, fmt.Errorf("%w", core.ErrNotCompleted)
	}

	if _, err := m.reviews.FindByBooking(bookingID); err == nil {
		return nil, fmt.Errorf("%w", core.ErrDuplicateReview)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("check existing review: %w", err)
	}

	// Denormalize the grouping keys from the booking so aggregation scans
	// never need joins.
	categoryName := ""
	if cat, err := m.catalog.GetCategory(b.CategoryID); err == nil {
		categoryName = cat.Name
	}

	rv := &core.Review{
		BookingID:        bookingID,
		CustomerID:       customerID,
		TechnicianID:     b.TechnicianID,
		ServiceID:        b.ServiceID,
		CategoryID:       b.CategoryID,
		CategoryName:     categoryName,
		Rating:           rating,
		TechnicianRating: technicianRating,
		Comment:          comment,
	}

	if err := m.reviews.Create(rv); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	logAggregationFailure("create", m.aggregator.OnReviewWritten(rv))
	m.publish(rv, "review.created")

	return rv, nil
}

func (m *ReviewManager) Update(ctx context.Context, customerID, reviewID string, patch core.ReviewPatch) (*core.Review, error) {
	rv, err := m.reviews.GetByID(reviewID)
	if err != nil {
		return nil, fmt.Errorf("%w: review %s", core.ErrNotFound, reviewID)
	}
	if rv.CustomerID != customerID {
		return nil, fmt.Errorf("%w: not your review", core.ErrForbidden)
	}

	if patch.Rating != nil {
		if err := validateRating(*patch.Rating); err != nil {
			return nil, err
		}
		rv.Rating = *patch.Rating
	}
	if patch.TechnicianRating != nil {
		if err := validateRating(*patch.TechnicianRating); err != nil {
			return nil, err
		}
		rv.TechnicianRating = *patch.TechnicianRating
	}
	if patch.Comment != nil {
		rv.Comment = *patch.Comment
	}

	if err := m.reviews.Update(rv); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	logAggregationFailure("update", m.aggregator.OnReviewWritten(rv))
	m.publish(rv, "review.updated")

	return rv, nil
}

// Delete removes a review. Admin-only, enforced at the route boundary.
func (m *ReviewManager) Delete(ctx context.Context, reviewID string) error {
	rv, err := m.reviews.GetByID(reviewID)
	if err != nil {
		return fmt.Errorf("%w: review %s", core.ErrNotFound, reviewID)
	}

	if err := m.reviews.Delete(reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	// The deleted copy still carries the technician/service keys the
	// recomputation needs.
	logAggregationFailure("delete", m.aggregator.OnReviewRemoved(rv))
	m.publish(rv, "review.deleted")

	return nil
}

func (m *ReviewManager) publish(rv *core.Review, eventType string) {
	if m.realtime == nil {
		return
	}
	data := map[string]any{
		"review_id":         rv.ID,
		"booking_id":        rv.BookingID,
		"technician_id":     rv.TechnicianID,
		"rating":            rv.Rating,
		"technician_rating": rv.TechnicianRating,
	}
	m.realtime.Publish(core.ChannelAdmin, "", eventType, data)
	if rv.TechnicianID != "" {
		m.realtime.Publish(core.ChannelUser, rv.TechnicianID, eventType, data)
	}
}

func validateRating(n int) error {
	if n < 1 || n > 5 {
		return fmt.Errorf("%w: must be between 1 and 5, got %d", core.ErrInvalidRating, n)
	}
	return nil
}
