package core

// Role identifies which side of the marketplace an actor belongs to.
// Admins are PocketBase superusers; customers and technicians live in
// their own auth collections.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// Actor is the authenticated party requesting an operation.
type Actor struct {
	UserID string
	Role   Role
}

// Status is a persisted booking state.
//
// Note: "rejected" is deliberately NOT a member. A technician rejecting an
// assignment is accepted as a transition *target* (TargetRejected) but the
// stored result is pending with the technician cleared — the booking
// re-enters the unassigned pool. Observers see a booking.rejected event;
// the database never does. API consumers reading the status field must not
// expect a rejected value to ever appear.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"

	// TargetRejected is an input-only pseudo status (see note above).
	TargetRejected Status = "rejected"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Booking is a unit of requested work linking a customer, an optional
// assigned technician, a category/service and a status.
type Booking struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customer_id"`
	TechnicianID string `json:"technician_id"` // empty while pending
	CategoryID   string `json:"category_id"`
	ServiceID    string `json:"service_id"` // optional
	Status       Status `json:"status"`

	// Money
	Price       float64 `json:"price"`        // quoted at creation
	FinalAmount float64 `json:"final_amount"` // set on completion
	ExtraReason string  `json:"extra_reason"` // required iff final > quoted

	// SecurityPin is the "happy pin": a 6-digit code issued on acceptance,
	// held by the customer/admin and required to authorize completion.
	// It is blanked whenever a booking is rendered for a technician.
	SecurityPin string `json:"security_pin,omitempty"`

	TechnicianNote string   `json:"technician_note"`
	ProofImages    []string `json:"proof_images"` // proof-of-work photos, appended at completion

	ScheduledAt string `json:"scheduled_at"` // YYYY-MM-DD HH:MM
	CompletedAt string `json:"completed_at"`
	Notes       string `json:"notes"`

	// Location
	Address        string  `json:"address"`
	AddressDetails string  `json:"address_details"`
	Lat            float64 `json:"lat"`
	Long           float64 `json:"long"`

	// Version guards the read-modify-write cycle. Every transition bumps
	// it; a writer holding a stale version loses with ErrStaleState.
	Version int `json:"version"`

	Created string `json:"created"`
	Updated string `json:"updated"`
}

// Review is a customer's rating of a completed booking. At most one review
// exists per booking (unique index). Technician, service and category are
// denormalized from the booking at creation time so the aggregator can
// group without joins.
type Review struct {
	ID           string `json:"id"`
	BookingID    string `json:"booking_id"`
	CustomerID   string `json:"customer_id"`
	TechnicianID string `json:"technician_id"`
	ServiceID    string `json:"service_id"` // optional
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`

	Rating           int    `json:"rating"`            // 1-5, service quality
	TechnicianRating int    `json:"technician_rating"` // 1-5, technician quality
	Comment          string `json:"comment"`

	Created string `json:"created"`
	Updated string `json:"updated"`
}

// CategoryRating is one entry of a technician's per-category reputation.
type CategoryRating struct {
	Category  string  `json:"category"`
	AvgRating float64 `json:"avg_rating"`
	Count     int     `json:"count"`
}

// Technician carries the reputation projection maintained by the rating
// aggregator. AvgRating, ReviewCount and CategoryRatings are never
// hand-edited outside a recomputation.
type Technician struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Active      bool   `json:"active"`
	Verified    bool   `json:"verified"`
	OpenForWork bool   `json:"open_for_work"`
	FCMToken    string `json:"fcm_token"`

	AvgRating       float64          `json:"avg_rating"` // 1 decimal
	ReviewCount     int              `json:"review_count"`
	CategoryRatings []CategoryRating `json:"category_ratings"`
	TotalJobs       int              `json:"total_jobs"`
}

// Customer is the booking owner.
type Customer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	FCMToken string `json:"fcm_token"`
}

// Category groups services and supplies the default quote.
type Category struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	BasePrice float64 `json:"base_price"`
	Active    bool    `json:"active"`
	SortOrder int     `json:"sort_order"`
}

// Service is a concrete offering within a category. Rating and
// ReviewCount form its reputation projection.
type Service struct {
	ID          string  `json:"id"`
	CategoryID  string  `json:"category_id"`
	Name        string  `json:"name"`
	BasePrice   float64 `json:"base_price"`
	Active      bool    `json:"active"`
	Rating      float64 `json:"rating"` // 1 decimal
	ReviewCount int     `json:"review_count"`
}

// TechnicianStats is the recomputed technician-wide projection.
type TechnicianStats struct {
	AvgRating       float64
	ReviewCount     int
	CategoryRatings []CategoryRating
}

// ServiceStats is the recomputed per-service projection.
type ServiceStats struct {
	Rating      float64
	ReviewCount int
}

// Notification is a persisted advisory message for one recipient.
type Notification struct {
	ID          string         `json:"id"`
	RecipientID string         `json:"recipient_id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data"`
	Read        bool           `json:"read"`
}

// Dashboard models.

type DashboardStats struct {
	BookingsToday  int     `json:"bookings_today"`
	PendingCount   int     `json:"pending_count"`
	CompletedCount int     `json:"completed_count"`
	CompletionRate float64 `json:"completion_rate"`
}

type TechRanking struct {
	TechnicianID string  `json:"technician_id"`
	Name         string  `json:"name"`
	AvgRating    float64 `json:"avg_rating"`
	TotalJobs    int     `json:"total_jobs"`
}
