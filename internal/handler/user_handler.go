package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ze-Austin/ze-school/internal/models"
	"github.com/Ze-Austin/ze-school/internal/service"
	appErrors "github.com/Ze-Austin/ze-school/pkg/errors"
	"github.com/Ze-Austin/ze-school/pkg/response"
)

// UserHandler exposes account registration and listing endpoints.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func userFilterFromQuery(c *gin.Context) models.UserFilter {
	var filter models.UserFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

// RegisterAdmin godoc
// @Summary Register administrator
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body service.RegisterAdminRequest true "Admin payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/admin/register [post]
func (h *UserHandler) RegisterAdmin(c *gin.Context) {
	var req service.RegisterAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.users.RegisterAdmin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// ListUsers godoc
// @Summary List all accounts
// @Tags Authentication
// @Produce json
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /auth/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	filter := userFilterFromQuery(c)

	users, pagination, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// ListAdmins godoc
// @Summary List administrators
// @Tags Admins
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admins [get]
func (h *UserHandler) ListAdmins(c *gin.Context) {
	filter := userFilterFromQuery(c)
	role := models.RoleAdmin
	filter.Role = &role

	admins, pagination, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admins, pagination)
}

// GetAdmin godoc
// @Summary Get administrator detail
// @Tags Admins
// @Produce json
// @Param id path string true "Admin ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admins/{id} [get]
func (h *UserHandler) GetAdmin(c *gin.Context) {
	admin, err := h.users.GetAdmin(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admin, nil)
}

// UpdateAdmin godoc
// @Summary Update administrator profile
// @Tags Admins
// @Accept json
// @Produce json
// @Param id path string true "Admin ID"
// @Param payload body service.UpdateUserRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admins/{id} [put]
func (h *UserHandler) UpdateAdmin(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	admin, err := h.users.UpdateAdmin(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admin, nil)
}

// DeleteAdmin godoc
// @Summary Delete administrator
// @Tags Admins
// @Produce json
// @Param id path string true "Admin ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admins/{id} [delete]
func (h *UserHandler) DeleteAdmin(c *gin.Context) {
	if err := h.users.DeleteAdmin(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
