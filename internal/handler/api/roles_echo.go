package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"RegionFeed/internal/domain/models"
	"RegionFeed/internal/repository"
	"RegionFeed/internal/usecase"
	xhttp "RegionFeed/pkg/http"
	applogger "RegionFeed/pkg/logger"
)

// RolesEchoHandler serves the static role catalog.
type RolesEchoHandler struct {
	roles  *usecase.Roles
	logger *applogger.Logger
}

func NewRolesEchoHandler(roles *usecase.Roles, logger *applogger.Logger) *RolesEchoHandler {
	return &RolesEchoHandler{roles: roles, logger: logger}
}

func (h *RolesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/roles")
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

func (h *RolesEchoHandler) List(c echo.Context) error {
	req := &models.RoleListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	roles, err := h.roles.List(c.Request().Context(), req.Code)
	if err != nil {
		h.logger.Error("list roles", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, roles, int64(len(roles)))
}

func (h *RolesEchoHandler) Get(c echo.Context) error {
	req := &models.RoleGetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	role, err := h.roles.Get(c.Request().Context(), req.ID)
	if errors.Is(err, repository.ErrRoleNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("role %d not found", req.ID).WithError(err))
	}
	if err != nil {
		h.logger.Error("get role", applogger.Int("id", req.ID), applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, role)
}
