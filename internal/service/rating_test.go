package service

import (
	"testing"

	"fieldserve/internal/core"
)

func seedReview(env *testEnv, id string, techRating, rating int, category, serviceID string) *core.Review {
	rv := &core.Review{
		ID:               id,
		BookingID:        "booking_" + id,
		CustomerID:       "cust_1",
		TechnicianID:     "tech_1",
		ServiceID:        serviceID,
		CategoryID:       "cat_ac",
		CategoryName:     category,
		Rating:           rating,
		TechnicianRating: techRating,
	}
	env.reviews.reviews[rv.ID] = rv
	return rv
}

func TestAggregator_RecomputesFromFullSet(t *testing.T) {
	env := newTestEnv()

	// Three reviews land: 4, 5, 3.
	seedReview(env, "r1", 4, 4, "Air Conditioning", "")
	seedReview(env, "r2", 5, 5, "Air Conditioning", "")
	r3 := seedReview(env, "r3", 3, 3, "Air Conditioning", "")

	if err := env.aggregator.OnReviewWritten(r3); err != nil {
		t.Fatalf("OnReviewWritten failed: %v", err)
	}

	tech, _ := env.techs.GetByID("tech_1")
	if tech.AvgRating != 4.0 {
		t.Errorf("Expected avg 4.0, got %v", tech.AvgRating)
	}
	if tech.ReviewCount != 3 {
		t.Errorf("Expected count 3, got %d", tech.ReviewCount)
	}

	// The 3-star review is deleted: 4 and 5 remain.
	delete(env.reviews.reviews, "r3")
	if err := env.aggregator.OnReviewRemoved(r3); err != nil {
		t.Fatalf("OnReviewRemoved failed: %v", err)
	}

	tech, _ = env.techs.GetByID("tech_1")
	if tech.AvgRating != 4.5 {
		t.Errorf("Expected avg 4.5 after delete, got %v", tech.AvgRating)
	}
	if tech.ReviewCount != 2 {
		t.Errorf("Expected count 2 after delete, got %d", tech.ReviewCount)
	}
}

func TestAggregator_LastReviewRemovedResetsEverything(t *testing.T) {
	env := newTestEnv()
	env.techs.techs["tech_1"].TotalJobs = 7

	rv := seedReview(env, "r1", 5, 5, "Air Conditioning", "")
	if err := env.aggregator.OnReviewWritten(rv); err != nil {
		t.Fatalf("OnReviewWritten failed: %v", err)
	}

	delete(env.reviews.reviews, "r1")
	if err := env.aggregator.OnReviewRemoved(rv); err != nil {
		t.Fatalf("OnReviewRemoved failed: %v", err)
	}

	tech, _ := env.techs.GetByID("tech_1")
	if tech.AvgRating != 0 || tech.ReviewCount != 0 || len(tech.CategoryRatings) != 0 {
		t.Errorf("Expected zeroed projection, got %+v", tech)
	}
	if tech.TotalJobs != 0 {
		t.Errorf("Expected total_jobs reset with the projection, got %d", tech.TotalJobs)
	}
	if env.techs.resets != 1 {
		t.Errorf("Expected exactly one reset, got %d", env.techs.resets)
	}
}

func TestComputeTechnicianStats_CategoryGrouping(t *testing.T) {
	reviews := []*core.Review{
		{TechnicianRating: 5, CategoryName: "Plumbing"},
		{TechnicianRating: 4, CategoryName: "Air Conditioning"},
		{TechnicianRating: 4, CategoryName: "Plumbing"},
		{TechnicianRating: 3, CategoryName: "Air Conditioning"},
		{TechnicianRating: 5, CategoryName: "Air Conditioning"},
	}

	stats := computeTechnicianStats(reviews)

	if stats.ReviewCount != 5 {
		t.Errorf("Expected count 5, got %d", stats.ReviewCount)
	}
	if stats.AvgRating != 4.2 {
		t.Errorf("Expected avg 4.2, got %v", stats.AvgRating)
	}

	if len(stats.CategoryRatings) != 2 {
		t.Fatalf("Expected 2 categories, got %d", len(stats.CategoryRatings))
	}
	// Sorted by name: Air Conditioning before Plumbing.
	ac := stats.CategoryRatings[0]
	if ac.Category != "Air Conditioning" || ac.Count != 3 || ac.AvgRating != 4.0 {
		t.Errorf("Air Conditioning entry wrong: %+v", ac)
	}
	pl := stats.CategoryRatings[1]
	if pl.Category != "Plumbing" || pl.Count != 2 || pl.AvgRating != 4.5 {
		t.Errorf("Plumbing entry wrong: %+v", pl)
	}
}

func TestComputeTechnicianStats_Rounding(t *testing.T) {
	// 4+4+5 = 13/3 = 4.333... -> 4.3
	stats := computeTechnicianStats([]*core.Review{
		{TechnicianRating: 4, CategoryName: "X"},
		{TechnicianRating: 4, CategoryName: "X"},
		{TechnicianRating: 5, CategoryName: "X"},
	})
	if stats.AvgRating != 4.3 {
		t.Errorf("Expected 4.3, got %v", stats.AvgRating)
	}

	// 3+4 = 7/2 = 3.5 stays exact.
	stats = computeTechnicianStats([]*core.Review{
		{TechnicianRating: 3, CategoryName: "X"},
		{TechnicianRating: 4, CategoryName: "X"},
	})
	if stats.AvgRating != 3.5 {
		t.Errorf("Expected 3.5, got %v", stats.AvgRating)
	}
}

func TestComputeServiceStats(t *testing.T) {
	stats := computeServiceStats([]*core.Review{
		{Rating: 5}, {Rating: 4}, {Rating: 4},
	})
	if stats.Rating != 4.3 || stats.ReviewCount != 3 {
		t.Errorf("Expected 4.3/3, got %+v", stats)
	}

	if got := computeServiceStats(nil); got.Rating != 0 || got.ReviewCount != 0 {
		t.Errorf("Expected zero stats for empty set, got %+v", got)
	}
}

func TestAggregator_ServiceProjectionAndEvent(t *testing.T) {
	env := newTestEnv()

	rv := seedReview(env, "r1", 5, 4, "Air Conditioning", "svc_clean")
	if err := env.aggregator.OnReviewWritten(rv); err != nil {
		t.Fatalf("OnReviewWritten failed: %v", err)
	}

	stats, ok := env.catalog.serviceStats["svc_clean"]
	if !ok {
		t.Fatal("Expected service stats written")
	}
	if stats.Rating != 4.0 || stats.ReviewCount != 1 {
		t.Errorf("Expected 4.0/1, got %+v", stats)
	}

	events := env.publisher.byType("service.updated")
	if len(events) != 1 {
		t.Fatalf("Expected one service.updated event, got %d", len(events))
	}
	if events[0].Data["service_id"] != "svc_clean" {
		t.Errorf("Event carries wrong service: %v", events[0].Data)
	}
}

func TestAggregator_ReviewWithoutTechnicianFails(t *testing.T) {
	env := newTestEnv()
	if err := env.aggregator.OnReviewWritten(&core.Review{}); err == nil {
		t.Error("Expected error for review without technician")
	}
}
