package middleware

import (
	coreDomain "fieldserve/internal/core"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// resolveAuth accepts either the Authorization header (mobile/API
// clients) or the pb_auth cookie (web clients) and loads the matching
// auth record.
func resolveAuth(app *pocketbase.PocketBase, e *core.RequestEvent) *core.Record {
	if e.Auth != nil {
		return e.Auth
	}

	token := e.Request.Header.Get("Authorization")
	if token == "" {
		if cookie, err := e.Request.Cookie("pb_auth"); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil
	}

	record, err := app.FindAuthRecordByToken(token, core.TokenTypeAuth)
	if err != nil {
		return nil
	}
	return record
}

// ActorFrom maps an authenticated request to the domain actor. Returns
// a zero actor when the request carries no valid auth.
func ActorFrom(e *core.RequestEvent) coreDomain.Actor {
	if e.Auth == nil {
		return coreDomain.Actor{}
	}
	role := coreDomain.RoleCustomer
	switch {
	case e.Auth.IsSuperuser():
		role = coreDomain.RoleAdmin
	case e.Auth.Collection().Name == "technicians":
		role = coreDomain.RoleTechnician
	}
	return coreDomain.Actor{UserID: e.Auth.Id, Role: role}
}

// RequireAuth admits any authenticated principal: admin, technician or
// customer.
func RequireAuth(app *pocketbase.PocketBase) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		record := resolveAuth(app, e)
		if record == nil {
			return apis.NewUnauthorizedError("Authentication required", nil)
		}
		e.Auth = record
		return e.Next()
	}
}

// RequireAdmin admits only superusers.
func RequireAdmin(app *pocketbase.PocketBase) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		record := resolveAuth(app, e)
		if record == nil || !record.IsSuperuser() {
			return apis.NewForbiddenError("Admin access required", nil)
		}
		e.Auth = record
		return e.Next()
	}
}

// RequireCustomer admits auth records from the customers collection.
func RequireCustomer(app *pocketbase.PocketBase) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		record := resolveAuth(app, e)
		if record == nil || record.Collection().Name != "customers" {
			return apis.NewForbiddenError("Customer access required", nil)
		}
		e.Auth = record
		return e.Next()
	}
}
