// Package app provides the dependency injection container. All service
// wiring happens here so main.go stays a thin bootstrap.
package app

import (
	"log"
	"os"
	"time"

	"fieldserve/internal/adapter/repository"
	domain "fieldserve/internal/core"
	"fieldserve/internal/handler"
	"fieldserve/internal/service"
	"fieldserve/pkg/broker"
	"fieldserve/pkg/cache"
	"fieldserve/pkg/notification"
	"fieldserve/pkg/sharelink"

	"github.com/pocketbase/pocketbase"
)

const shareLinkTTL = 7 * 24 * time.Hour

// Container holds all application dependencies.
type Container struct {
	PB *pocketbase.PocketBase

	// Infrastructure
	Broker     *broker.SegmentedBroker
	FCMService *notification.FCMService
	Dispatcher *notification.Dispatcher
	Signer     *sharelink.Signer
	Catalog    *cache.CatalogCache

	// Repositories (Data Access Layer)
	BookingRepo   domain.BookingRepository
	ReviewRepo    domain.ReviewRepository
	TechRepo      domain.TechnicianRepository
	CustomerRepo  domain.CustomerRepository
	AnalyticsRepo domain.AnalyticsRepository

	// Domain Services (Business Logic)
	BookingService   domain.BookingService
	ReviewService    domain.ReviewService
	Aggregator       domain.RatingAggregator
	AnalyticsService domain.AnalyticsService

	// Handlers
	BookingHandler *handler.BookingHandler
	ReviewHandler  *handler.ReviewHandler
	AdminHandler   *handler.AdminHandler
	EventsHandler  *handler.EventsHandler
}

// NewContainer creates and wires all dependencies.
func NewContainer(pb *pocketbase.PocketBase) (*Container, error) {
	c := &Container{PB: pb}

	// 1. Event broker
	c.Broker = broker.NewSegmentedBroker()
	publisher := broker.NewPublisher(c.Broker)

	// 2. Push notifications. FCM is optional: without credentials the
	// dispatcher runs store-only.
	if credentials := os.Getenv("FCM_CREDENTIALS"); credentials != "" {
		fcm, err := notification.NewFCMService(credentials)
		if err != nil {
			log.Printf("⚠️ FCM WARNING: %v", err)
		} else {
			log.Println("✅ FCM Service Initialized")
			c.FCMService = fcm
		}
	}
	c.Dispatcher = notification.NewDispatcher(pb, c.FCMService)

	// 3. Share links
	secret := os.Getenv("SHARELINK_SECRET")
	if secret == "" {
		secret = "dev-only-insecure-secret"
		log.Println("⚠️ SHARELINK_SECRET not set, using dev default")
	}
	c.Signer = sharelink.NewSigner(secret, shareLinkTTL)

	// 4. Repositories (adapters)
	c.BookingRepo = repository.NewBookingRepo(pb)
	c.ReviewRepo = repository.NewReviewRepo(pb)
	c.TechRepo = repository.NewTechnicianRepo(pb)
	c.CustomerRepo = repository.NewCustomerRepo(pb)
	c.AnalyticsRepo = repository.NewAnalyticsRepo(pb)
	c.Catalog = cache.NewCatalogCache(repository.NewCatalogRepo(pb), 0)

	// 5. Domain services
	c.Aggregator = service.NewRatingEngine(c.ReviewRepo, c.TechRepo, c.Catalog, publisher)
	c.BookingService = service.NewBookingLifecycle(
		c.BookingRepo,
		c.TechRepo,
		c.CustomerRepo,
		c.Catalog,
		c.Dispatcher,
		publisher,
	)
	c.ReviewService = service.NewReviewManager(
		c.ReviewRepo,
		c.BookingRepo,
		c.Catalog,
		c.Aggregator,
		publisher,
	)
	c.AnalyticsService = service.NewAnalyticsService(c.AnalyticsRepo)

	// 6. Handlers
	c.BookingHandler = handler.NewBookingHandler(c.BookingService, c.Signer)
	c.ReviewHandler = handler.NewReviewHandler(c.ReviewService)
	c.AdminHandler = handler.NewAdminHandler(c.AnalyticsService)
	c.EventsHandler = handler.NewEventsHandler(c.Broker)

	return c, nil
}
