package repository

import (
	"fmt"

	"fieldserve/internal/core"

	pbCore "github.com/pocketbase/pocketbase/core"
)

type PBCustomerRepo struct {
	app pbCore.App
}

func NewCustomerRepo(app pbCore.App) core.CustomerRepository {
	return &PBCustomerRepo{app: app}
}

func (r *PBCustomerRepo) GetByID(id string) (*core.Customer, error) {
	record, err := r.app.FindRecordById("customers", id)
	if err != nil {
		return nil, fmt.Errorf("%w: customer %s", core.ErrNotFound, id)
	}
	return &core.Customer{
		ID:       record.Id,
		Name:     record.GetString("name"),
		Email:    record.Email(),
		Phone:    record.GetString("phone"),
		FCMToken: record.GetString("fcm_token"),
	}, nil
}
