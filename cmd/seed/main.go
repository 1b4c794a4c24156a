// Seeds demo accounts for local development: a handful of technicians
// and customers. The catalog itself ships with the migrations.
package main

import (
	"fmt"
	"log"

	_ "fieldserve/migrations"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

func main() {
	app := pocketbase.New()

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		if err := seedTechnicians(app); err != nil {
			return err
		}
		return seedCustomers(app)
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

func seedTechnicians(app *pocketbase.PocketBase) error {
	collection, err := app.FindCollectionByNameOrId("technicians")
	if err != nil {
		return err
	}

	techs := []map[string]any{
		{"email": "tech1@fieldserve.local", "name": "Minh Tran", "phone": "0901000001"},
		{"email": "tech2@fieldserve.local", "name": "Huy Nguyen", "phone": "0901000002"},
		{"email": "tech3@fieldserve.local", "name": "Long Pham", "phone": "0901000003"},
	}

	for _, data := range techs {
		existing, _ := app.FindRecordsByFilter("technicians", "email={:email}", "", 1, 0, map[string]any{"email": data["email"]})
		if len(existing) > 0 {
			fmt.Printf("Technician already exists: %s\n", data["email"])
			continue
		}

		record := core.NewRecord(collection)
		record.Set("email", data["email"])
		record.Set("name", data["name"])
		record.Set("phone", data["phone"])
		record.Set("active", true)
		record.Set("verified", true)
		record.Set("open_for_work", true)
		record.SetPassword("changeme123")

		if err := app.Save(record); err != nil {
			return err
		}
		fmt.Printf("Created technician: %s\n", record.GetString("email"))
	}
	return nil
}

func seedCustomers(app *pocketbase.PocketBase) error {
	collection, err := app.FindCollectionByNameOrId("customers")
	if err != nil {
		return err
	}

	customers := []map[string]any{
		{"email": "customer1@fieldserve.local", "name": "An Le", "phone": "0902000001"},
		{"email": "customer2@fieldserve.local", "name": "Thao Vo", "phone": "0902000002"},
	}

	for _, data := range customers {
		existing, _ := app.FindRecordsByFilter("customers", "email={:email}", "", 1, 0, map[string]any{"email": data["email"]})
		if len(existing) > 0 {
			fmt.Printf("Customer already exists: %s\n", data["email"])
			continue
		}

		record := core.NewRecord(collection)
		record.Set("email", data["email"])
		record.Set("name", data["name"])
		record.Set("phone", data["phone"])
		record.SetPassword("changeme123")

		if err := app.Save(record); err != nil {
			return err
		}
		fmt.Printf("Created customer: %s\n", record.GetString("email"))
	}
	return nil
}
