package core

import (
	"context"

	"github.com/pocketbase/pocketbase/tools/filesystem"
)

// BookingRepository defines data access methods for Bookings.
type BookingRepository interface {
	GetByID(id string) (*Booking, error)
	Create(b *Booking) error

	// ApplyTransition writes the given field set as one atomic field-level
	// update, guarded by the optimistic version check: if the stored
	// version no longer equals expectedVersion the write is rejected with
	// ErrStaleState. Only the named fields are touched, so legacy records
	// with unrelated gaps are never re-validated retroactively. proofFiles,
	// if any, are appended to the proof_images file field. The persisted
	// result is re-read and returned.
	ApplyTransition(id string, expectedVersion int, fields map[string]any, proofFiles []*filesystem.File) (*Booking, error)

	FindPending() ([]*Booking, error)
	FindByCustomer(customerID string) ([]*Booking, error)
	FindActiveByTechnician(techID string) ([]*Booking, error)
}

// ReviewRepository defines data access for Reviews.
type ReviewRepository interface {
	GetByID(id string) (*Review, error)
	FindByBooking(bookingID string) (*Review, error) // ErrNotFound when absent
	FindByTechnician(techID string) ([]*Review, error)
	FindByService(serviceID string) ([]*Review, error)
	Create(rv *Review) error
	Update(rv *Review) error
	Delete(id string) error
}

// TechnicianRepository defines data access for Technicians.
type TechnicianRepository interface {
	GetByID(id string) (*Technician, error)

	// UpdateRatingStats replaces the reputation projection wholesale.
	UpdateRatingStats(techID string, stats TechnicianStats) error

	// ResetRatingStats zeroes the full projection including total_jobs,
	// used when a technician's last review is removed.
	ResetRatingStats(techID string) error

	// MarkJobCompleted increments total_jobs and re-opens the technician
	// for new work. Called once per successful completion.
	MarkJobCompleted(techID string) error
}

// CustomerRepository defines data access for Customers.
type CustomerRepository interface {
	GetByID(id string) (*Customer, error)
}

// CatalogRepository defines data access for categories and services.
type CatalogRepository interface {
	GetCategory(id string) (*Category, error)
	GetService(id string) (*Service, error)
	UpdateServiceStats(serviceID string, stats ServiceStats) error
}

// NotificationDispatcher accepts an advisory message for one recipient.
// Best-effort: the core never depends on delivery succeeding.
type NotificationDispatcher interface {
	Send(ctx context.Context, n *Notification) error
}

// RealtimePublisher broadcasts mutations to subscribed parties.
// channel is ChannelAdmin or ChannelUser (scoped by userID). Best-effort.
type RealtimePublisher interface {
	Publish(channel string, userID string, eventType string, data map[string]any)
}

// Realtime channel names shared between the engine and the broker adapter.
const (
	ChannelAdmin = "admin"
	ChannelUser  = "user"
)

// BookingService is the lifecycle engine's public surface.
type BookingService interface {
	Create(ctx context.Context, req *BookingRequest) (*Booking, error)
	Transition(ctx context.Context, actor Actor, bookingID string, target Status, p *TransitionPayload) (*Booking, error)

	// Get enforces the read-path contract: non-participants (other than
	// admins) are rejected and the security pin is blanked for technician
	// requesters.
	Get(actor Actor, bookingID string) (*Booking, error)

	// List returns the bookings relevant to the actor: the unassigned
	// pool for admins, their own bookings for customers, their open jobs
	// for technicians. Technician results have the pin blanked.
	List(actor Actor) ([]*Booking, error)
}

// ReviewService gates review mutations and triggers re-aggregation.
type ReviewService interface {
	Create(ctx context.Context, customerID, bookingID string, rating, technicianRating int, comment string) (*Review, error)
	Update(ctx context.Context, customerID, reviewID string, patch ReviewPatch) (*Review, error)
	Delete(ctx context.Context, reviewID string) error
}

// RatingAggregator recomputes reputation projections from the live review
// set. Both hooks run the same full recomputation for the keys attached to
// the affected review.
type RatingAggregator interface {
	OnReviewWritten(rv *Review) error
	OnReviewRemoved(rv *Review) error
}

// AnalyticsService feeds the admin dashboard.
type AnalyticsService interface {
	GetDashboardStats() (*DashboardStats, error)
	GetTopTechnicians(limit int) ([]TechRanking, error)
}

// AnalyticsRepository runs the dashboard's aggregate queries.
type AnalyticsRepository interface {
	CountBookings(filter string) (int64, error)
	TopTechnicians(limit int) ([]TechRanking, error)
}

// DTOs for the service layer.

type BookingRequest struct {
	CustomerID     string
	CategoryID     string
	ServiceID      string // optional, overrides the category default quote
	ScheduledAt    string
	Notes          string
	Address        string
	AddressDetails string
	Lat            float64
	Long           float64
}

// TransitionPayload carries target-specific inputs. Unused fields are
// ignored by transitions that do not consume them.
type TransitionPayload struct {
	TechnicianID string // assign: technician to attach

	// Completion inputs
	Pin            string
	FinalAmount    *float64 // nil defaults to the quoted price
	ExtraReason    string
	TechnicianNote string
	ProofFiles     []*filesystem.File
}

// ReviewPatch updates only the non-nil fields.
type ReviewPatch struct {
	Rating           *int
	TechnicianRating *int
	Comment          *string
}
