package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		categories, err := app.FindCollectionByNameOrId("categories")
		if err != nil {
			return err
		}

		categoriesData := []map[string]interface{}{
			{
				"name":        "Air Conditioning",
				"slug":        "air-conditioning",
				"description": "Installation, cleaning and repair of AC units",
				"base_price":  350000,
				"sort_order":  1,
				"active":      true,
			},
			{
				"name":        "Plumbing",
				"slug":        "plumbing",
				"description": "Leak repair, pipe replacement, water heater service",
				"base_price":  250000,
				"sort_order":  2,
				"active":      true,
			},
			{
				"name":        "Electrical",
				"slug":        "electrical",
				"description": "Wiring, breaker panels, lighting and outlet work",
				"base_price":  300000,
				"sort_order":  3,
				"active":      true,
			},
			{
				"name":        "Cleaning",
				"slug":        "cleaning",
				"description": "Deep cleaning for homes and offices",
				"base_price":  200000,
				"sort_order":  4,
				"active":      true,
			},
		}

		catIDs := map[string]string{}
		for _, data := range categoriesData {
			record := core.NewRecord(categories)
			for key, value := range data {
				record.Set(key, value)
			}
			if err := app.Save(record); err != nil {
				return err
			}
			catIDs[record.GetString("slug")] = record.Id
		}

		services, err := app.FindCollectionByNameOrId("services")
		if err != nil {
			return err
		}

		servicesData := []map[string]interface{}{
			{
				"name":        "AC Deep Clean",
				"description": "Full disassembly clean with coil wash",
				"base_price":  400000,
				"category_id": catIDs["air-conditioning"],
				"active":      true,
			},
			{
				"name":        "AC Gas Refill",
				"description": "Refrigerant top-up with leak check",
				"base_price":  550000,
				"category_id": catIDs["air-conditioning"],
				"active":      true,
			},
			{
				"name":        "Water Heater Repair",
				"description": "Diagnosis and repair of electric water heaters",
				"base_price":  320000,
				"category_id": catIDs["plumbing"],
				"active":      true,
			},
			{
				"name":        "Breaker Panel Upgrade",
				"description": "Replace aging breaker panels",
				"base_price":  900000,
				"category_id": catIDs["electrical"],
				"active":      true,
			},
		}

		for _, data := range servicesData {
			record := core.NewRecord(services)
			for key, value := range data {
				record.Set(key, value)
			}
			if err := app.Save(record); err != nil {
				return err
			}
		}

		return nil
	}, nil)
}
