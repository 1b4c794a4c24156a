package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"fieldserve/internal/core"

	"github.com/dustin/go-humanize"
)

// BookingLifecycle is the state machine governing every booking mutation
// after creation. All writes funnel through Transition: the engine loads
// the booking, validates the requested edge against the actor's role and
// the current status, computes the complete target field set, and persists
// it as one version-checked field-level update. Notification and realtime
// fan-out happen after the write and never roll it back.
type BookingLifecycle struct {
	bookings      core.BookingRepository
	techs         core.TechnicianRepository
	customers     core.CustomerRepository
	catalog       core.CatalogRepository
	notifications core.NotificationDispatcher
	realtime      core.RealtimePublisher

	// Per-booking serialization. The version check in ApplyTransition is
	// the cross-process guard; this mutex keeps in-process racers from
	// burning a round trip just to lose it.
	locks *keyedMutex

	now func() time.Time
}

func NewBookingLifecycle(
	bookings core.BookingRepository,
	techs core.TechnicianRepository,
	customers core.CustomerRepository,
	catalog core.CatalogRepository,
	notifications core.NotificationDispatcher,
	realtime core.RealtimePublisher,
) core.BookingService {
	return &BookingLifecycle{
		bookings:      bookings,
		techs:         techs,
		customers:     customers,
		catalog:       catalog,
		notifications: notifications,
		realtime:      realtime,
		locks:         newKeyedMutex(),
		now:           time.Now,
	}
}

// transitionRule is one cell of the transition table: who may request the
// edge, what must hold before it applies, and which fields it writes.
type transitionRule struct {
	roles []core.Role

	// guard validates preconditions and payload. Returns a core error kind.
	guard func(e *BookingLifecycle, b *core.Booking, actor core.Actor, p *core.TransitionPayload) error

	// apply fills the field set written by ApplyTransition. The stored
	// status comes from these fields, not from the requested target (the
	// rejected pseudo-target persists pending).
	apply func(e *BookingLifecycle, b *core.Booking, actor core.Actor, p *core.TransitionPayload, fields map[string]any) error

	event string
}

type transitionKey struct {
	from core.Status
	to   core.Status
}

// transitions is the full (current, target) table. An edge absent here is
// an invalid transition for every role; an edge present but not permitting
// the actor's role is forbidden.
var transitions = map[transitionKey]*transitionRule{
	{core.StatusPending, core.StatusAssigned}: {
		roles: []core.Role{core.RoleAdmin},
		guard: guardAssign,
		apply: applyAssign,
		event: "booking.assigned",
	},
	{core.StatusAssigned, core.StatusAccepted}: {
		roles: []core.Role{core.RoleTechnician, core.RoleAdmin},
		apply: applyAccept,
		event: "booking.accepted",
	},
	{core.StatusAssigned, core.TargetRejected}: {
		roles: []core.Role{core.RoleTechnician, core.RoleAdmin},
		apply: applyReject,
		event: "booking.rejected",
	},
	{core.StatusAccepted, core.StatusInProgress}: {
		roles: []core.Role{core.RoleTechnician, core.RoleAdmin},
		apply: applyStart,
		event: "booking.started",
	},
	{core.StatusInProgress, core.StatusCompleted}: {
		roles: []core.Role{core.RoleTechnician, core.RoleAdmin},
		guard: guardComplete,
		apply: applyComplete,
		event: "booking.completed",
	},
	{core.StatusPending, core.StatusCancelled}: {
		roles: []core.Role{core.RoleCustomer, core.RoleTechnician, core.RoleAdmin},
		guard: guardCancel,
		apply: applyCancel,
		event: "booking.cancelled",
	},
	{core.StatusAssigned, core.StatusCancelled}: {
		roles: []core.Role{core.RoleCustomer, core.RoleTechnician, core.RoleAdmin},
		guard: guardCancel,
		apply: applyCancel,
		event: "booking.cancelled",
	},
	{core.StatusAccepted, core.StatusCancelled}: {
		roles: []core.Role{core.RoleCustomer, core.RoleTechnician, core.RoleAdmin},
		guard: guardCancel,
		apply: applyCancel,
		event: "booking.cancelled",
	},
	{core.StatusInProgress, core.StatusCancelled}: {
		roles: []core.Role{core.RoleCustomer, core.RoleTechnician, core.RoleAdmin},
		guard: guardCancel,
		apply: applyCancel,
		event: "booking.cancelled",
	},
}

// Create validates the request against the catalog, quotes the price and
// persists a pending, unassigned booking.
func (e *BookingLifecycle) Create(ctx context.Context, req *core.BookingRequest) (*core.Booking, error) {
	if req.CustomerID == "" {
		return nil, fmt.Errorf("%w: booking has no customer", core.ErrForbidden)
	}
	if _, err := e.customers.GetByID(req.CustomerID); err != nil {
		return nil, fmt.Errorf("%w: customer %s", core.ErrNotFound, req.CustomerID)
	}
	if req.CategoryID == "" {
		return nil, fmt.Errorf("%w: category is required", core.ErrNotFound)
	}

	cat, err := e.catalog.GetCategory(req.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("%w: category %s", core.ErrNotFound, req.CategoryID)
	}
	if !cat.Active {
		return nil, fmt.Errorf("%w: category %q is not accepting bookings", core.ErrNotFound, cat.Name)
	}

	price := cat.BasePrice
	serviceID := ""
	if req.ServiceID != "" {
		svc, err := e.catalog.GetService(req.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("%w: service %s", core.ErrNotFound, req.ServiceID)
		}
		if svc.BasePrice > 0 {
			price = svc.BasePrice
		}
		serviceID = svc.ID
	}

	b := &core.Booking{
		CustomerID:     req.CustomerID,
		CategoryID:     cat.ID,
		ServiceID:      serviceID,
		Status:         core.StatusPending,
		Price:          price,
		ScheduledAt:    req.ScheduledAt,
		Notes:          req.Notes,
		Address:        req.Address,
		AddressDetails: req.AddressDetails,
		Lat:            req.Lat,
		Long:           req.Long,
	}

	if err := e.bookings.Create(b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	e.dispatch(ctx, &core.Notification{
		RecipientID: core.ChannelAdmin,
		Type:        "booking.created",
		Title:       "New booking",
		Message:     fmt.Sprintf("New %s booking, quoted at %s", cat.Name, humanize.Commaf(price)),
		Data:        map[string]any{"booking_id": b.ID, "category": cat.Name},
	})
	e.publish(b, "booking.created")

	return b, nil
}

// Transition applies one edge of the table. See the package doc on
// BookingLifecycle for the overall discipline.
func (e *BookingLifecycle) Transition(ctx context.Context, actor core.Actor, bookingID string, target core.Status, p *core.TransitionPayload) (*core.Booking, error) {
	if p == nil {
		p = &core.TransitionPayload{}
	}

	unlock := e.locks.Lock(bookingID)
	defer unlock()

	b, err := e.bookings.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: booking %s", core.ErrNotFound, bookingID)
	}

	rule, ok := transitions[transitionKey{b.Status, target}]
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, b.Status, target)
	}

	if !roleAllowed(rule.roles, actor.Role) {
		return nil, fmt.Errorf("%w: role %s may not request %s", core.ErrForbidden, actor.Role, target)
	}
	if err := e.checkParticipant(b, actor); err != nil {
		return nil, err
	}
	if rule.guard != nil {
		if err := rule.guard(e, b, actor, p); err != nil {
			return nil, err
		}
	}

	fields := map[string]any{}
	if err := rule.apply(e, b, actor, p, fields); err != nil {
		return nil, err
	}

	updated, err := e.bookings.ApplyTransition(b.ID, b.Version, fields, p.ProofFiles)
	if err != nil {
		return nil, err
	}

	// Completion hands off to the technician-availability collaborator.
	// Runs after the committed write so a lost race never double-counts.
	if target == core.StatusCompleted && b.TechnicianID != "" {
		if err := e.techs.MarkJobCompleted(b.TechnicianID); err != nil {
			log.Printf("⚠️ [LIFECYCLE] failed to update technician %s job counter: %v", b.TechnicianID, err)
		}
	}

	e.notifyTransition(ctx, actor, b, updated, target)
	e.publish(updated, rule.event)

	return updated, nil
}

// Get enforces the read-path contract: participants and admins only, and
// the pin is a customer/admin-held secret so technician reads get it
// blanked regardless of the stored value.
func (e *BookingLifecycle) Get(actor core.Actor, bookingID string) (*core.Booking, error) {
	b, err := e.bookings.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: booking %s", core.ErrNotFound, bookingID)
	}

	switch actor.Role {
	case core.RoleAdmin:
		return b, nil
	case core.RoleCustomer:
		if b.CustomerID != actor.UserID {
			return nil, fmt.Errorf("%w: not your booking", core.ErrForbidden)
		}
		return b, nil
	case core.RoleTechnician:
		if b.TechnicianID != actor.UserID {
			return nil, fmt.Errorf("%w: booking is not assigned to you", core.ErrForbidden)
		}
		return redactPin(b), nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", core.ErrForbidden, actor.Role)
	}
}

// List scopes the result set by role: admins see the dispatch queue,
// customers their own history, technicians their open jobs.
func (e *BookingLifecycle) List(actor core.Actor) ([]*core.Booking, error) {
	switch actor.Role {
	case core.RoleAdmin:
		return e.bookings.FindPending()
	case core.RoleCustomer:
		return e.bookings.FindByCustomer(actor.UserID)
	case core.RoleTechnician:
		bookings, err := e.bookings.FindActiveByTechnician(actor.UserID)
		if err != nil {
			return nil, err
		}
		for i, b := range bookings {
			bookings[i] = redactPin(b)
		}
		return bookings, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", core.ErrForbidden, actor.Role)
	}
}

// checkParticipant binds non-admin actors to their own side of the
// booking: technicians must be the assignee, customers the owner.
func (e *BookingLifecycle) checkParticipant(b *core.Booking, actor core.Actor) error {
	switch actor.Role {
	case core.RoleTechnician:
		if b.TechnicianID == "" || b.TechnicianID != actor.UserID {
			return fmt.Errorf("%w: booking is not assigned to you", core.ErrForbidden)
		}
	case core.RoleCustomer:
		if b.CustomerID != actor.UserID {
			return fmt.Errorf("%w: not your booking", core.ErrForbidden)
		}
	}
	return nil
}

func roleAllowed(roles []core.Role, r core.Role) bool {
	for _, allowed := range roles {
		if allowed == r {
			return true
		}
	}
	return false
}

// ---- guards ----

func guardAssign(e *BookingLifecycle, b *core.Booking, _ core.Actor, p *core.TransitionPayload) error {
	if p.TechnicianID == "" {
		return fmt.Errorf("%w: assignment requires a technician", core.ErrInvalidTransition)
	}
	if b.TechnicianID != "" {
		return fmt.Errorf("%w: booking already has a technician", core.ErrInvalidTransition)
	}
	tech, err := e.techs.GetByID(p.TechnicianID)
	if err != nil {
		return fmt.Errorf("%w: technician %s", core.ErrNotFound, p.TechnicianID)
	}
	if !tech.Active {
		return fmt.Errorf("%w: technician %s is not active", core.ErrInvalidTransition, tech.Name)
	}
	return nil
}

// guardCancel: once work is accepted the technician must escalate to an
// admin instead of cancelling unilaterally.
func guardCancel(_ *BookingLifecycle, b *core.Booking, actor core.Actor, _ *core.TransitionPayload) error {
	if actor.Role == core.RoleTechnician &&
		(b.Status == core.StatusAccepted || b.Status == core.StatusInProgress) {
		return fmt.Errorf("%w: technicians cannot cancel accepted work, contact an administrator", core.ErrForbidden)
	}
	return nil
}

// guardComplete runs the three completion checks in order: pin, proof,
// price exception. The pin and proof exemptions for admins are independent
// flags: an admin skips the pin check only when no pin was supplied, and
// skips the proof requirement always.
func guardComplete(_ *BookingLifecycle, b *core.Booking, actor core.Actor, p *core.TransitionPayload) error {
	// 1. Pin check.
	suppliedPin := strings.TrimSpace(p.Pin)
	pinRequired := actor.Role == core.RoleTechnician ||
		(actor.Role == core.RoleAdmin && suppliedPin != "")
	if pinRequired {
		storedPin := strings.TrimSpace(b.SecurityPin)
		if storedPin == "" || suppliedPin != storedPin {
			return fmt.Errorf("%w", core.ErrInvalidPin)
		}
	}

	// 2. Proof check. A prior failed attempt may already have stored
	// images; those count.
	if actor.Role != core.RoleAdmin && len(p.ProofFiles) == 0 && len(b.ProofImages) == 0 {
		return fmt.Errorf("%w", core.ErrMissingProof)
	}

	// 3. Price-exception check.
	final := b.Price
	if p.FinalAmount != nil {
		final = *p.FinalAmount
	}
	if math.Round(final) > math.Round(b.Price) && strings.TrimSpace(p.ExtraReason) == "" {
		return fmt.Errorf("%w: final amount %s exceeds quote %s",
			core.ErrMissingExtraReason, humanize.Commaf(final), humanize.Commaf(b.Price))
	}
	return nil
}

// ---- side effects ----

func applyAssign(_ *BookingLifecycle, _ *core.Booking, _ core.Actor, p *core.TransitionPayload, fields map[string]any) error {
	fields["status"] = string(core.StatusAssigned)
	fields["technician_id"] = p.TechnicianID
	return nil
}

func applyAccept(_ *BookingLifecycle, b *core.Booking, _ core.Actor, _ *core.TransitionPayload, fields map[string]any) error {
	fields["status"] = string(core.StatusAccepted)
	if b.SecurityPin == "" {
		pin, err := newSecurityPin()
		if err != nil {
			return err
		}
		fields["security_pin"] = pin
	}
	return nil
}

// applyReject: the stored result is pending with the technician cleared.
// Rejected is never persisted; it only names the event observers see.
func applyReject(_ *BookingLifecycle, _ *core.Booking, _ core.Actor, _ *core.TransitionPayload, fields map[string]any) error {
	fields["status"] = string(core.StatusPending)
	fields["technician_id"] = ""
	return nil
}

func applyStart(_ *BookingLifecycle, _ *core.Booking, _ core.Actor, _ *core.TransitionPayload, fields map[string]any) error {
	fields["status"] = string(core.StatusInProgress)
	return nil
}

func applyComplete(e *BookingLifecycle, b *core.Booking, _ core.Actor, p *core.TransitionPayload, fields map[string]any) error {
	final := b.Price
	if p.FinalAmount != nil {
		final = *p.FinalAmount
	}

	fields["status"] = string(core.StatusCompleted)
	fields["final_amount"] = final
	fields["completed_at"] = e.now().Format("2006-01-02 15:04:05.000Z")
	fields["security_pin"] = ""
	if p.TechnicianNote != "" {
		fields["technician_note"] = p.TechnicianNote
	}
	if math.Round(final) > math.Round(b.Price) {
		fields["extra_reason"] = strings.TrimSpace(p.ExtraReason)
	} else {
		// Stale reasons from earlier attempts must not survive a
		// completion at or under quote.
		fields["extra_reason"] = ""
	}
	return nil
}

func applyCancel(_ *BookingLifecycle, _ *core.Booking, _ core.Actor, _ *core.TransitionPayload, fields map[string]any) error {
	fields["status"] = string(core.StatusCancelled)
	fields["security_pin"] = ""
	return nil
}

// ---- fan-out ----

// notifyTransition sends the counterpart party (whichever of customer and
// technician did not initiate) a transition-specific message, plus the
// admin feed always. prev is the pre-transition snapshot: for a rejection
// the technician is already cleared on updated.
func (e *BookingLifecycle) notifyTransition(ctx context.Context, actor core.Actor, prev, updated *core.Booking, target core.Status) {
	title, message := transitionCopy(target, updated)

	recipients := []string{core.ChannelAdmin}
	if actor.Role != core.RoleCustomer && updated.CustomerID != "" {
		recipients = append(recipients, updated.CustomerID)
	}
	techID := updated.TechnicianID
	if techID == "" {
		techID = prev.TechnicianID
	}
	if actor.Role != core.RoleTechnician && techID != "" {
		recipients = append(recipients, techID)
	}

	for _, r := range recipients {
		e.dispatch(ctx, &core.Notification{
			RecipientID: r,
			Type:        "booking." + string(target),
			Title:       title,
			Message:     message,
			Data:        map[string]any{"booking_id": updated.ID, "status": string(updated.Status)},
		})
	}
}

func transitionCopy(target core.Status, b *core.Booking) (title, message string) {
	switch target {
	case core.StatusAssigned:
		return "Technician assigned", "A technician has been assigned to your booking."
	case core.StatusAccepted:
		return "Booking accepted", "Your technician accepted the job. Share the security pin only when the work is done."
	case core.TargetRejected:
		return "Assignment declined", "The technician declined this job. The booking is back in the queue."
	case core.StatusInProgress:
		return "Work started", "Your technician has started the job."
	case core.StatusCompleted:
		return "Job completed", fmt.Sprintf("Work finished. Final amount: %s.", humanize.Commaf(b.FinalAmount))
	case core.StatusCancelled:
		return "Booking cancelled", "The booking has been cancelled."
	default:
		return "Booking updated", "Your booking status changed."
	}
}

// dispatch is fire-and-forget: delivery failure is logged and swallowed.
// The committed state transition is the source of truth; notifications are
// advisory.
func (e *BookingLifecycle) dispatch(ctx context.Context, n *core.Notification) {
	if e.notifications == nil {
		return
	}
	if err := e.notifications.Send(ctx, n); err != nil {
		log.Printf("❌ [LIFECYCLE] notification to %s failed: %v", n.RecipientID, err)
	}
}

// publish broadcasts the updated booking to the admin channel and each
// involved party's private channel. The technician copy has the pin
// blanked, same as the read path.
func (e *BookingLifecycle) publish(b *core.Booking, eventType string) {
	if e.realtime == nil {
		return
	}
	e.realtime.Publish(core.ChannelAdmin, "", eventType, bookingEventData(b))
	if b.CustomerID != "" {
		e.realtime.Publish(core.ChannelUser, b.CustomerID, eventType, bookingEventData(b))
	}
	if b.TechnicianID != "" {
		e.realtime.Publish(core.ChannelUser, b.TechnicianID, eventType, bookingEventData(redactPin(b)))
	}
}

func bookingEventData(b *core.Booking) map[string]any {
	return map[string]any{
		"booking_id":    b.ID,
		"customer_id":   b.CustomerID,
		"technician_id": b.TechnicianID,
		"category_id":   b.CategoryID,
		"service_id":    b.ServiceID,
		"status":        string(b.Status),
		"price":         b.Price,
		"final_amount":  b.FinalAmount,
		"security_pin":  b.SecurityPin,
		"scheduled_at":  b.ScheduledAt,
		"completed_at":  b.CompletedAt,
		"version":       b.Version,
	}
}

// redactPin returns a copy with the security pin blanked.
func redactPin(b *core.Booking) *core.Booking {
	clone := *b
	clone.SecurityPin = ""
	return &clone
}
