package main

import (
	"log"

	"fieldserve/internal/app"
	"fieldserve/pkg/middleware"

	_ "fieldserve/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
)

func main() {
	pb := pocketbase.New()

	// 1. Migrations
	migratecmd.MustRegister(pb, pb.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// 2. Dependency wiring
	container, err := app.NewContainer(pb)
	if err != nil {
		log.Fatal("Error wiring container:", err)
	}

	// 3. Routes
	pb.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Public: share links are their own capability.
		e.Router.GET("/api/shared/{token}", container.BookingHandler.Shared)

		// Any authenticated principal; the services gate by role and
		// ownership beyond this point.
		authGroup := e.Router.Group("/api")
		authGroup.BindFunc(middleware.RequireAuth(pb))
		authGroup.POST("/bookings", container.BookingHandler.Create)
		authGroup.GET("/bookings", container.BookingHandler.List)
		authGroup.GET("/bookings/{id}", container.BookingHandler.Get)
		authGroup.POST("/bookings/{id}/transition", container.BookingHandler.Transition)
		authGroup.POST("/bookings/{id}/share", container.BookingHandler.Share)
		authGroup.GET("/events", container.EventsHandler.StreamUser)

		// Review authorship is a customer-only surface.
		reviewGroup := e.Router.Group("/api")
		reviewGroup.BindFunc(middleware.RequireCustomer(pb))
		reviewGroup.POST("/bookings/{id}/review", container.ReviewHandler.Create)
		reviewGroup.PATCH("/reviews/{id}", container.ReviewHandler.Update)

		// Admin only
		adminGroup := e.Router.Group("/api/admin")
		adminGroup.BindFunc(middleware.RequireAdmin(pb))
		adminGroup.GET("/stats", container.AdminHandler.DashboardStats)
		adminGroup.GET("/technicians/top", container.AdminHandler.TopTechnicians)
		adminGroup.GET("/events", container.EventsHandler.StreamAdmin)
		adminGroup.DELETE("/reviews/{id}", container.ReviewHandler.Delete)

		return e.Next()
	})

	if err := pb.Start(); err != nil {
		log.Fatal(err)
	}
}
