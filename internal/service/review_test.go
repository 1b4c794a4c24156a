package service

import (
	"context"
	"errors"
	"testing"

	"fieldserve/internal/core"

	"github.com/pocketbase/pocketbase/tools/filesystem"
)

// completedBooking drives a fresh booking through the full lifecycle so a
// review becomes legal.
func completedBooking(t *testing.T, env *testEnv) *core.Booking {
	t.Helper()
	b := env.createBooking(t)
	env.advance(t, adminActor, b.ID, core.StatusAssigned, &core.TransitionPayload{TechnicianID: "tech_1"})
	accepted := env.advance(t, techActor, b.ID, core.StatusAccepted, nil)
	env.advance(t, techActor, b.ID, core.StatusInProgress, nil)
	return env.advance(t, techActor, b.ID, core.StatusCompleted, &core.TransitionPayload{
		Pin:        accepted.SecurityPin,
		ProofFiles: []*filesystem.File{proofFile("done.jpg")},
	})
}

func TestCreateReview_DenormalizesAndAggregates(t *testing.T) {
	env := newTestEnv()
	b := completedBooking(t, env)

	rv, err := env.reviewSvc.Create(context.Background(), "cust_1", b.ID, 4, 5, "quick and clean")
	if err != nil {
		t.Fatalf("Create review failed: %v", err)
	}

	if rv.TechnicianID != "tech_1" {
		t.Errorf("Expected technician denormalized, got %q", rv.TechnicianID)
	}
	if rv.CategoryName != "Air Conditioning" {
		t.Errorf("Expected category name denormalized, got %q", rv.CategoryName)
	}

	// Aggregation ran synchronously.
	tech, _ := env.techs.GetByID("tech_1")
	if tech.AvgRating != 5.0 || tech.ReviewCount != 1 {
		t.Errorf("Expected projection 5.0/1, got %v/%d", tech.AvgRating, tech.ReviewCount)
	}

	if got := env.publisher.byType("review.created"); len(got) == 0 {
		t.Error("Expected review.created realtime event")
	}
}

func TestCreateReview_Gates(t *testing.T) {
	env := newTestEnv()
	b := completedBooking(t, env)

	// Rating bounds.
	if _, err := env.reviewSvc.Create(context.Background(), "cust_1", b.ID, 0, 5, ""); !errors.Is(err, core.ErrInvalidRating) {
		t.Errorf("Rating 0 should fail, got %v", err)
	}
	if _, err := env.reviewSvc.Create(context.Background(), "cust_1", b.ID, 4, 6, ""); !errors.Is(err, core.ErrInvalidRating) {
		t.Errorf("Technician rating 6 should fail, got %v", err)
	}

	// Unknown booking.
	if _, err := env.reviewSvc.Create(context.Background(), "cust_1", "booking_ghost", 4, 4, ""); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Unknown booking should fail, got %v", err)
	}

	// Not the owner.
	if _, err := env.reviewSvc.Create(context.Background(), "cust_other", b.ID, 4, 4, ""); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("Non-owner should be forbidden, got %v", err)
	}

	// Not completed.
	pending := env.createBooking(t)
	if _, err := env.reviewSvc.Create(context.Background(), "cust_1", pending.ID, 4, 4, ""); !errors.Is(err, core.ErrNotCompleted) {
		t.Errorf("Pending booking should be unreviewable, got %v", err)
	}

	// One review per booking.
	if _, err := env.reviewSvc.Create(context.Background(), "cust_1", b.ID, 4, 4, ""); err != nil {
		t.Fatalf("First review failed: %v", err)
	}
	if _, err := env.reviewSvc.Create(context.Background(), "cust_1", b.ID, 5, 5, ""); !errors.Is(err, core.ErrDuplicateReview) {
		t.Errorf("Second review should fail, got %v", err)
	}
}

func TestUpdateReview_ReaggregatesChangedFields(t *testing.T) {
	env := newTestEnv()
	b := completedBooking(t, env)

	rv, err := env.reviewSvc.Create(context.Background(), "cust_1", b.ID, 4, 3, "ok")
	if err != nil {
		t.Fatalf("Create review failed: %v", err)
	}

	// Author-only.
	newRating := 5
	if _, err := env.reviewSvc.Update(context.Background(), "cust_other", rv.ID, core.ReviewPatch{TechnicianRating: &newRating}); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("Non-author update should be forbidden, got %v", err)
	}

	updated, err := env.reviewSvc.Update(context.Background(), "cust_1", rv.ID, core.ReviewPatch{TechnicianRating: &newRating})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.TechnicianRating != 5 {
		t.Errorf("Expected technician rating 5, got %d", updated.TechnicianRating)
	}
	if updated.Rating != 4 || updated.Comment != "ok" {
		t.Errorf("Untouched fields must survive the patch: %+v", updated)
	}

	tech, _ := env.techs.GetByID("tech_1")
	if tech.AvgRating != 5.0 {
		t.Errorf("Expected projection to follow the edit, got %v", tech.AvgRating)
	}
}

func TestDeleteReview_ReaggregatesFromDeletedCopy(t *testing.T) {
	env := newTestEnv()
	b := completedBooking(t, env)

	rv, err := env.reviewSvc.Create(context.Background(), "cust_1", b.ID, 4, 4, "")
	if err != nil {
		t.Fatalf("Create review failed: %v", err)
	}
	tech, _ := env.techs.GetByID("tech_1")
	if tech.ReviewCount != 1 {
		t.Fatalf("Expected projection 1 before delete, got %d", tech.ReviewCount)
	}

	if err := env.reviewSvc.Delete(context.Background(), rv.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// Last review gone: full reset, total_jobs included.
	tech, _ = env.techs.GetByID("tech_1")
	if tech.AvgRating != 0 || tech.ReviewCount != 0 || tech.TotalJobs != 0 {
		t.Errorf("Expected zeroed projection after last delete, got %+v", tech)
	}

	if err := env.reviewSvc.Delete(context.Background(), rv.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Deleting twice should fail, got %v", err)
	}
}
