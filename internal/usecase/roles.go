package usecase

import (
	"context"

	"RegionFeed/internal/domain/models"
	drepo "RegionFeed/internal/domain/repository"
)

// Roles answers role catalog queries.
type Roles struct {
	catalog drepo.RoleCatalog
}

func NewRoles(catalog drepo.RoleCatalog) *Roles {
	return &Roles{catalog: catalog}
}

// List returns every role, or only the one whose code matches when code is set.
func (r *Roles) List(ctx context.Context, code string) ([]models.Role, error) {
	all, err := r.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return all, nil
	}
	out := make([]models.Role, 0, 1)
	for _, role := range all {
		if role.Code == code {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *Roles) Get(ctx context.Context, id int) (*models.Role, error) {
	return r.catalog.Get(ctx, id)
}
