package repository

import (
	"context"
	"errors"

	"RegionFeed/internal/domain/models"
	"RegionFeed/internal/domain/repository"
)

var ErrRoleNotFound = errors.New("role not found")

var builtinRoles = []models.Role{
	{ID: 1, Name: "管理员", Code: "admin", Description: "系统管理员"},
	{ID: 2, Name: "普通用户", Code: "user", Description: "普通用户"},
	{ID: 3, Name: "查看者", Code: "viewer", Description: "只读用户"},
}

// StaticRoleCatalog serves the built-in role list.
type StaticRoleCatalog struct {
	roles []models.Role
}

func NewStaticRoleCatalog() *StaticRoleCatalog {
	return &StaticRoleCatalog{roles: builtinRoles}
}

func (c *StaticRoleCatalog) List(_ context.Context) ([]models.Role, error) {
	out := make([]models.Role, len(c.roles))
	copy(out, c.roles)
	return out, nil
}

func (c *StaticRoleCatalog) Get(_ context.Context, id int) (*models.Role, error) {
	for _, r := range c.roles {
		if r.ID == id {
			role := r
			return &role, nil
		}
	}
	return nil, ErrRoleNotFound
}

var _ repository.RoleCatalog = (*StaticRoleCatalog)(nil)
