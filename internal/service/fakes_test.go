package service

import (
	"context"
	"fmt"
	"sync"

	"fieldserve/internal/core"

	"github.com/pocketbase/pocketbase/tools/filesystem"
)

// In-memory fakes for the repository and fan-out ports. They mimic the
// PocketBase adapters closely enough for the engine semantics under test:
// version-checked writes, proof appends, wholesale stat replacement.

type memBookingRepo struct {
	mu       sync.Mutex
	seq      int
	bookings map[string]*core.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]*core.Booking)}
}

func (r *memBookingRepo) GetByID(id string) (*core.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *memBookingRepo) Create(b *core.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	b.ID = fmt.Sprintf("booking_%d", r.seq)
	b.Version = 1
	clone := *b
	r.bookings[b.ID] = &clone
	return nil
}

func (r *memBookingRepo) ApplyTransition(id string, expectedVersion int, fields map[string]any, proofFiles []*filesystem.File) (*core.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if b.Version != expectedVersion {
		return nil, core.ErrStaleState
	}

	for key, value := range fields {
		switch key {
		case "status":
			b.Status = core.Status(value.(string))
		case "technician_id":
			b.TechnicianID = value.(string)
		case "security_pin":
			b.SecurityPin = value.(string)
		case "final_amount":
			b.FinalAmount = value.(float64)
		case "completed_at":
			b.CompletedAt = value.(string)
		case "technician_note":
			b.TechnicianNote = value.(string)
		case "extra_reason":
			b.ExtraReason = value.(string)
		default:
			return nil, fmt.Errorf("unexpected field %q", key)
		}
	}
	for _, f := range proofFiles {
		b.ProofImages = append(b.ProofImages, f.Name)
	}
	b.Version++

	clone := *b
	return &clone, nil
}

func (r *memBookingRepo) FindPending() ([]*core.Booking, error) {
	return r.filter(func(b *core.Booking) bool { return b.Status == core.StatusPending })
}

func (r *memBookingRepo) FindByCustomer(customerID string) ([]*core.Booking, error) {
	return r.filter(func(b *core.Booking) bool { return b.CustomerID == customerID })
}

func (r *memBookingRepo) FindActiveByTechnician(techID string) ([]*core.Booking, error) {
	return r.filter(func(b *core.Booking) bool {
		return b.TechnicianID == techID && !b.Status.IsTerminal()
	})
}

func (r *memBookingRepo) filter(keep func(*core.Booking) bool) ([]*core.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*core.Booking
	for _, b := range r.bookings {
		if keep(b) {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

type memTechRepo struct {
	mu    sync.Mutex
	techs map[string]*core.Technician

	statsWrites int
	resets      int
	lastStats   core.TechnicianStats
}

func newMemTechRepo() *memTechRepo {
	return &memTechRepo{techs: make(map[string]*core.Technician)}
}

func (r *memTechRepo) add(t *core.Technician) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.techs[t.ID] = t
}

func (r *memTechRepo) GetByID(id string) (*core.Technician, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.techs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *memTechRepo) UpdateRatingStats(techID string, stats core.TechnicianStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.techs[techID]
	if !ok {
		return core.ErrNotFound
	}
	t.AvgRating = stats.AvgRating
	t.ReviewCount = stats.ReviewCount
	t.CategoryRatings = stats.CategoryRatings
	r.statsWrites++
	r.lastStats = stats
	return nil
}

func (r *memTechRepo) ResetRatingStats(techID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.techs[techID]
	if !ok {
		return core.ErrNotFound
	}
	t.AvgRating = 0
	t.ReviewCount = 0
	t.CategoryRatings = nil
	t.TotalJobs = 0
	r.resets++
	return nil
}

func (r *memTechRepo) MarkJobCompleted(techID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.techs[techID]
	if !ok {
		return core.ErrNotFound
	}
	t.TotalJobs++
	t.OpenForWork = true
	return nil
}

type memCustomerRepo struct {
	customers map[string]*core.Customer
}

func (r *memCustomerRepo) GetByID(id string) (*core.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return c, nil
}

type memCatalogRepo struct {
	mu         sync.Mutex
	categories map[string]*core.Category
	services   map[string]*core.Service

	serviceStats map[string]core.ServiceStats
}

func newMemCatalogRepo() *memCatalogRepo {
	return &memCatalogRepo{
		categories:   make(map[string]*core.Category),
		services:     make(map[string]*core.Service),
		serviceStats: make(map[string]core.ServiceStats),
	}
}

func (r *memCatalogRepo) GetCategory(id string) (*core.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return c, nil
}

func (r *memCatalogRepo) GetService(id string) (*core.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return s, nil
}

func (r *memCatalogRepo) UpdateServiceStats(serviceID string, stats core.ServiceStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[serviceID]; !ok {
		return core.ErrNotFound
	}
	r.serviceStats[serviceID] = stats
	return nil
}

type memReviewRepo struct {
	mu      sync.Mutex
	seq     int
	reviews map[string]*core.Review
}

func newMemReviewRepo() *memReviewRepo {
	return &memReviewRepo{reviews: make(map[string]*core.Review)}
}

func (r *memReviewRepo) GetByID(id string) (*core.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	clone := *rv
	return &clone, nil
}

func (r *memReviewRepo) FindByBooking(bookingID string) (*core.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rv := range r.reviews {
		if rv.BookingID == bookingID {
			clone := *rv
			return &clone, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *memReviewRepo) FindByTechnician(techID string) ([]*core.Review, error) {
	return r.filter(func(rv *core.Review) bool { return rv.TechnicianID == techID })
}

func (r *memReviewRepo) FindByService(serviceID string) ([]*core.Review, error) {
	return r.filter(func(rv *core.Review) bool { return rv.ServiceID == serviceID })
}

func (r *memReviewRepo) filter(keep func(*core.Review) bool) ([]*core.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*core.Review
	for _, rv := range r.reviews {
		if keep(rv) {
			clone := *rv
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memReviewRepo) Create(rv *core.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rv.ID = fmt.Sprintf("review_%d", r.seq)
	clone := *rv
	r.reviews[rv.ID] = &clone
	return nil
}

func (r *memReviewRepo) Update(rv *core.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[rv.ID]; !ok {
		return core.ErrNotFound
	}
	clone := *rv
	r.reviews[rv.ID] = &clone
	return nil
}

func (r *memReviewRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.reviews, id)
	return nil
}

// recordingDispatcher collects sent notifications.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []*core.Notification
}

func (d *recordingDispatcher) Send(_ context.Context, n *core.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return nil
}

func (d *recordingDispatcher) recipients() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, n := range d.sent {
		out = append(out, n.RecipientID)
	}
	return out
}

// recordingPublisher collects published realtime events.
type publishedEvent struct {
	Channel   string
	UserID    string
	EventType string
	Data      map[string]any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(channel, userID, eventType string, data map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{channel, userID, eventType, data})
}

func (p *recordingPublisher) byType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// testEnv wires the engine with seeded fakes: one category, one service,
// one active technician, one customer.
type testEnv struct {
	bookings   *memBookingRepo
	techs      *memTechRepo
	customers  *memCustomerRepo
	catalog    *memCatalogRepo
	reviews    *memReviewRepo
	dispatcher *recordingDispatcher
	publisher  *recordingPublisher

	lifecycle  core.BookingService
	reviewSvc  core.ReviewService
	aggregator core.RatingAggregator
}

func newTestEnv() *testEnv {
	env := &testEnv{
		bookings:   newMemBookingRepo(),
		techs:      newMemTechRepo(),
		catalog:    newMemCatalogRepo(),
		reviews:    newMemReviewRepo(),
		dispatcher: &recordingDispatcher{},
		publisher:  &recordingPublisher{},
	}
	env.customers = &memCustomerRepo{customers: map[string]*core.Customer{
		"cust_1": {ID: "cust_1", Name: "An Le"},
	}}
	env.catalog.categories["cat_ac"] = &core.Category{
		ID: "cat_ac", Name: "Air Conditioning", BasePrice: 500, Active: true,
	}
	env.catalog.categories["cat_off"] = &core.Category{
		ID: "cat_off", Name: "Retired", BasePrice: 100, Active: false,
	}
	env.catalog.services["svc_clean"] = &core.Service{
		ID: "svc_clean", CategoryID: "cat_ac", Name: "AC Deep Clean", BasePrice: 650, Active: true,
	}
	env.techs.add(&core.Technician{ID: "tech_1", Name: "Minh", Active: true})
	env.techs.add(&core.Technician{ID: "tech_idle", Name: "Idle", Active: false})

	env.lifecycle = NewBookingLifecycle(
		env.bookings, env.techs, env.customers, env.catalog, env.dispatcher, env.publisher,
	)
	env.aggregator = NewRatingEngine(env.reviews, env.techs, env.catalog, env.publisher)
	env.reviewSvc = NewReviewManager(env.reviews, env.bookings, env.catalog, env.aggregator, env.publisher)
	return env
}

var (
	adminActor = core.Actor{UserID: "admin_1", Role: core.RoleAdmin}
	custActor  = core.Actor{UserID: "cust_1", Role: core.RoleCustomer}
	techActor  = core.Actor{UserID: "tech_1", Role: core.RoleTechnician}
)

// createBooking makes a pending booking for cust_1 in the AC category.
func (env *testEnv) createBooking(t interface {
	Helper()
	Fatalf(string, ...any)
}) *core.Booking {
	t.Helper()
	b, err := env.lifecycle.Create(context.Background(), &core.BookingRequest{
		CustomerID: "cust_1",
		CategoryID: "cat_ac",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return b
}

// advance drives a booking through the given transition, failing the test
// on error.
func (env *testEnv) advance(t interface {
	Helper()
	Fatalf(string, ...any)
}, actor core.Actor, bookingID string, target core.Status, p *core.TransitionPayload) *core.Booking {
	t.Helper()
	b, err := env.lifecycle.Transition(context.Background(), actor, bookingID, target, p)
	if err != nil {
		t.Fatalf("Transition to %s failed: %v", target, err)
	}
	return b
}

func proofFile(name string) *filesystem.File {
	return &filesystem.File{Name: name}
}
