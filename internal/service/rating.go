package service

import (
	"fmt"
	"log"
	"sort"

	"fieldserve/internal/core"
)

// RatingEngine maintains the reputation projections. Every review write or
// removal triggers a FULL recomputation for the affected technician (and
// service, if the review references one) — not an incremental counter
// update. Reviews can be edited and deleted, and a running average is not
// reversible without the original values; a full scan per affected key
// keeps the projection consistent with the live review set at O(n) per
// write, which is acceptable at expected review volumes.
//
// Each key's scan-then-write runs under a single-writer lock so a run is
// always computed from one coherent snapshot. Two concurrent runs for the
// same key serialize; the later writer's snapshot wins, which converges.
type RatingEngine struct {
	reviews  core.ReviewRepository
	techs    core.TechnicianRepository
	catalog  core.CatalogRepository
	realtime core.RealtimePublisher

	locks *keyedMutex
}

func NewRatingEngine(
	reviews core.ReviewRepository,
	techs core.TechnicianRepository,
	catalog core.CatalogRepository,
	realtime core.RealtimePublisher,
) core.RatingAggregator {
	return &RatingEngine{
		reviews:  reviews,
		techs:    techs,
		catalog:  catalog,
		realtime: realtime,
		locks:    newKeyedMutex(),
	}
}

func (r *RatingEngine) OnReviewWritten(rv *core.Review) error {
	return r.recompute(rv)
}

func (r *RatingEngine) OnReviewRemoved(rv *core.Review) error {
	return r.recompute(rv)
}

func (r *RatingEngine) recompute(rv *core.Review) error {
	if rv == nil || rv.TechnicianID == "" {
		return fmt.Errorf("recompute: review has no technician")
	}

	if err := r.recomputeTechnician(rv.TechnicianID); err != nil {
		return err
	}

	if rv.ServiceID != "" {
		if err := r.recomputeService(rv.ServiceID); err != nil {
			return err
		}
	}
	return nil
}

func (r *RatingEngine) recomputeTechnician(techID string) error {
	unlock := r.locks.Lock("tech:" + techID)
	defer unlock()

	reviews, err := r.reviews.FindByTechnician(techID)
	if err != nil {
		return fmt.Errorf("scan reviews for technician %s: %w", techID, err)
	}

	if len(reviews) == 0 {
		if err := r.techs.ResetRatingStats(techID); err != nil {
			return fmt.Errorf("reset stats for technician %s: %w", techID, err)
		}
		return nil
	}

	stats := computeTechnicianStats(reviews)
	if err := r.techs.UpdateRatingStats(techID, stats); err != nil {
		return fmt.Errorf("write stats for technician %s: %w", techID, err)
	}
	return nil
}

func (r *RatingEngine) recomputeService(serviceID string) error {
	unlock := r.locks.Lock("service:" + serviceID)
	defer unlock()

	reviews, err := r.reviews.FindByService(serviceID)
	if err != nil {
		return fmt.Errorf("scan reviews for service %s: %w", serviceID, err)
	}

	stats := computeServiceStats(reviews)
	if err := r.catalog.UpdateServiceStats(serviceID, stats); err != nil {
		return fmt.Errorf("write stats for service %s: %w", serviceID, err)
	}

	// Listening clients refresh displayed ratings off this event.
	if r.realtime != nil {
		r.realtime.Publish(core.ChannelAdmin, "", "service.updated", map[string]any{
			"service_id":   serviceID,
			"rating":       stats.Rating,
			"review_count": stats.ReviewCount,
		})
	}
	return nil
}

// computeTechnicianStats derives the technician-wide average plus the
// per-category breakdown from one review snapshot. The category list is
// replaced wholesale on write — no incremental patching, so edits and
// deletes can never leave drift behind.
func computeTechnicianStats(reviews []*core.Review) core.TechnicianStats {
	var sum int
	byCategory := map[string][]*core.Review{}
	for _, rv := range reviews {
		sum += rv.TechnicianRating
		byCategory[rv.CategoryName] = append(byCategory[rv.CategoryName], rv)
	}

	categories := make([]core.CategoryRating, 0, len(byCategory))
	for name, group := range byCategory {
		var catSum int
		for _, rv := range group {
			catSum += rv.TechnicianRating
		}
		categories = append(categories, core.CategoryRating{
			Category:  name,
			AvgRating: round1(float64(catSum) / float64(len(group))),
			Count:     len(group),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Category < categories[j].Category
	})

	return core.TechnicianStats{
		AvgRating:       round1(float64(sum) / float64(len(reviews))),
		ReviewCount:     len(reviews),
		CategoryRatings: categories,
	}
}

// computeServiceStats derives the service-quality projection; zero reviews
// reset it to zeroes.
func computeServiceStats(reviews []*core.Review) core.ServiceStats {
	if len(reviews) == 0 {
		return core.ServiceStats{}
	}
	var sum int
	for _, rv := range reviews {
		sum += rv.Rating
	}
	return core.ServiceStats{
		Rating:      round1(float64(sum) / float64(len(reviews))),
		ReviewCount: len(reviews),
	}
}

// logAggregationFailure is shared by callers that must not fail their own
// request when a recomputation errors: the review write is committed, the
// projection catches up on the next write.
func logAggregationFailure(op string, err error) {
	if err != nil {
		log.Printf("⚠️ [RATING] %s aggregation failed: %v", op, err)
	}
}
