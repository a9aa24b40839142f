package models

// Role is an entry of the static role catalog.
type Role struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// RoleListRequest filters the role list.
type RoleListRequest struct {
	Code string `query:"code" validate:"omitempty,oneof=admin user viewer"`
}

// RoleGetRequest selects one role by id.
type RoleGetRequest struct {
	ID int `param:"id" validate:"required,min=1"`
}
