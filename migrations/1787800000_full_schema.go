package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		addSystemFields := func(c *core.Collection) {
			c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
			c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		}

		// ----------------------------------------------------
		// 1. CUSTOMERS (Auth Collection)
		// ----------------------------------------------------
		customers := core.NewAuthCollection("customers")
		addSystemFields(customers)
		customers.Fields.Add(&core.TextField{Name: "name", Required: true})
		customers.Fields.Add(&core.TextField{Name: "phone"})
		customers.Fields.Add(&core.TextField{Name: "fcm_token"})
		customers.Fields.Add(&core.FileField{
			Name:      "avatar",
			MaxSelect: 1,
			MaxSize:   5242880,
		})

		if err := app.Save(customers); err != nil {
			return err
		}

		// ----------------------------------------------------
		// 2. TECHNICIANS (Auth Collection)
		// ----------------------------------------------------
		techs := core.NewAuthCollection("technicians")
		addSystemFields(techs)
		techs.ListRule = types.Pointer("")
		techs.ViewRule = types.Pointer("")
		techs.Fields.Add(&core.TextField{Name: "name", Required: true})
		techs.Fields.Add(&core.TextField{Name: "phone"})
		techs.Fields.Add(&core.BoolField{Name: "active"})
		techs.Fields.Add(&core.BoolField{Name: "verified"})
		techs.Fields.Add(&core.BoolField{Name: "open_for_work"})
		techs.Fields.Add(&core.TextField{Name: "fcm_token"})
		techs.Fields.Add(&core.FileField{
			Name:      "avatar",
			MaxSelect: 1,
			MaxSize:   5242880,
		})

		// Reputation projection, maintained by the rating aggregator only.
		techs.Fields.Add(&core.NumberField{Name: "avg_rating"})
		techs.Fields.Add(&core.NumberField{Name: "review_count"})
		techs.Fields.Add(&core.JSONField{Name: "category_ratings"})
		techs.Fields.Add(&core.NumberField{Name: "total_jobs"})

		techs.AddIndex("idx_techs_active", false, "active", "")
		techs.AddIndex("idx_techs_rating", false, "avg_rating", "")

		if err := app.Save(techs); err != nil {
			return err
		}

		// ----------------------------------------------------
		// 3. CATEGORIES
		// ----------------------------------------------------
		cats := core.NewBaseCollection("categories")
		addSystemFields(cats)
		cats.ListRule = types.Pointer("")
		cats.ViewRule = types.Pointer("")
		cats.Fields.Add(&core.TextField{Name: "name", Required: true})
		cats.Fields.Add(&core.TextField{Name: "slug", Required: true})
		cats.Fields.Add(&core.TextField{Name: "description"})
		cats.Fields.Add(&core.NumberField{Name: "base_price"})
		cats.Fields.Add(&core.NumberField{Name: "sort_order"})
		cats.Fields.Add(&core.BoolField{Name: "active"})
		cats.Fields.Add(&core.FileField{Name: "icon", MaxSelect: 1})

		cats.AddIndex("idx_cats_slug", true, "slug", "")

		if err := app.Save(cats); err != nil {
			return err
		}

		// ----------------------------------------------------
		// 4. SERVICES
		// ----------------------------------------------------
		services := core.NewBaseCollection("services")
		addSystemFields(services)
		services.ListRule = types.Pointer("")
		services.ViewRule = types.Pointer("")
		services.Fields.Add(&core.TextField{Name: "name", Required: true})
		services.Fields.Add(&core.TextField{Name: "description"})
		services.Fields.Add(&core.NumberField{Name: "base_price"})
		services.Fields.Add(&core.BoolField{Name: "active"})
		services.Fields.Add(&core.FileField{Name: "image", MaxSelect: 1})
		services.Fields.Add(&core.RelationField{
			Name:         "category_id",
			CollectionId: cats.Id,
			MaxSelect:    1,
			Required:     true,
		})

		// Reputation projection, maintained by the rating aggregator only.
		services.Fields.Add(&core.NumberField{Name: "rating"})
		services.Fields.Add(&core.NumberField{Name: "review_count"})

		if err := app.Save(services); err != nil {
			return err
		}

		// ----------------------------------------------------
		// 5. BOOKINGS
		// ----------------------------------------------------
		bookings := core.NewBaseCollection("bookings")
		addSystemFields(bookings)
		bookings.Fields.Add(&core.RelationField{
			Name:         "customer_id",
			CollectionId: customers.Id,
			MaxSelect:    1,
			Required:     true,
		})
		bookings.Fields.Add(&core.RelationField{
			Name:         "technician_id",
			CollectionId: techs.Id,
			MaxSelect:    1,
		})
		bookings.Fields.Add(&core.RelationField{
			Name:         "category_id",
			CollectionId: cats.Id,
			MaxSelect:    1,
			Required:     true,
		})
		bookings.Fields.Add(&core.RelationField{
			Name:         "service_id",
			CollectionId: services.Id,
			MaxSelect:    1,
		})
		bookings.Fields.Add(&core.SelectField{
			Name:      "status",
			Values:    []string{"pending", "assigned", "accepted", "in_progress", "completed", "cancelled"},
			MaxSelect: 1,
			Required:  true,
		})

		bookings.Fields.Add(&core.NumberField{Name: "price"})
		bookings.Fields.Add(&core.NumberField{Name: "final_amount"})
		bookings.Fields.Add(&core.TextField{Name: "extra_reason"})
		bookings.Fields.Add(&core.TextField{Name: "security_pin"})
		bookings.Fields.Add(&core.TextField{Name: "technician_note"})
		bookings.Fields.Add(&core.FileField{
			Name:      "proof_images",
			MaxSelect: 10,
			MaxSize:   10485760,
			MimeTypes: []string{"image/jpeg", "image/png", "image/webp"},
		})

		bookings.Fields.Add(&core.TextField{Name: "scheduled_at"}) // YYYY-MM-DD HH:MM
		bookings.Fields.Add(&core.TextField{Name: "completed_at"})
		bookings.Fields.Add(&core.TextField{Name: "notes"})

		bookings.Fields.Add(&core.TextField{Name: "address"})
		bookings.Fields.Add(&core.TextField{Name: "address_details"})
		bookings.Fields.Add(&core.NumberField{Name: "lat"})
		bookings.Fields.Add(&core.NumberField{Name: "long"})

		// Optimistic concurrency guard, bumped on every transition.
		bookings.Fields.Add(&core.NumberField{Name: "version"})

		bookings.AddIndex("idx_bookings_status", false, "status", "")
		bookings.AddIndex("idx_bookings_customer", false, "customer_id", "")
		bookings.AddIndex("idx_bookings_tech", false, "technician_id", "")

		if err := app.Save(bookings); err != nil {
			return err
		}

		// ----------------------------------------------------
		// 6. REVIEWS
		// ----------------------------------------------------
		reviews := core.NewBaseCollection("reviews")
		addSystemFields(reviews)
		reviews.ListRule = types.Pointer("")
		reviews.ViewRule = types.Pointer("")
		reviews.Fields.Add(&core.RelationField{
			Name:         "booking_id",
			CollectionId: bookings.Id,
			MaxSelect:    1,
			Required:     true,
		})
		reviews.Fields.Add(&core.RelationField{
			Name:         "customer_id",
			CollectionId: customers.Id,
			MaxSelect:    1,
			Required:     true,
		})
		reviews.Fields.Add(&core.RelationField{
			Name:         "technician_id",
			CollectionId: techs.Id,
			MaxSelect:    1,
		})
		reviews.Fields.Add(&core.RelationField{
			Name:         "service_id",
			CollectionId: services.Id,
			MaxSelect:    1,
		})
		reviews.Fields.Add(&core.RelationField{
			Name:         "category_id",
			CollectionId: cats.Id,
			MaxSelect:    1,
		})
		reviews.Fields.Add(&core.TextField{Name: "category_name"})

		reviews.Fields.Add(&core.NumberField{Name: "rating", Required: true})
		reviews.Fields.Add(&core.NumberField{Name: "technician_rating"})
		reviews.Fields.Add(&core.TextField{Name: "comment"})

		// One review per booking.
		reviews.AddIndex("idx_reviews_booking", true, "booking_id", "")
		reviews.AddIndex("idx_reviews_tech", false, "technician_id", "")
		reviews.AddIndex("idx_reviews_service", false, "service_id", "")

		if err := app.Save(reviews); err != nil {
			return err
		}

		// ----------------------------------------------------
		// 7. NOTIFICATIONS
		// ----------------------------------------------------
		notifications := core.NewBaseCollection("notifications")
		addSystemFields(notifications)
		notifications.Fields.Add(&core.TextField{Name: "recipient_id", Required: true})
		notifications.Fields.Add(&core.TextField{Name: "type"})
		notifications.Fields.Add(&core.TextField{Name: "title"})
		notifications.Fields.Add(&core.TextField{Name: "message"})
		notifications.Fields.Add(&core.JSONField{Name: "data"})
		notifications.Fields.Add(&core.BoolField{Name: "read"})

		notifications.AddIndex("idx_notifications_recipient", false, "recipient_id", "")

		return app.Save(notifications)
	}, func(app core.App) error {
		// Revert: drop in reverse dependency order.
		for _, name := range []string{"notifications", "reviews", "bookings", "services", "categories", "technicians", "customers"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				continue
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
