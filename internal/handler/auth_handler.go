package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ze-Austin/ze-school/internal/models"
	"github.com/Ze-Austin/ze-school/internal/service"
	appErrors "github.com/Ze-Austin/ze-school/pkg/errors"
	"github.com/Ze-Austin/ze-school/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
	metrics *service.MetricsService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, metrics *service.MetricsService) *AuthHandler {
	return &AuthHandler{service: svc, metrics: metrics}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordAuthFailure("login")
		response.Error(c, err)
		return
	}

	h.metrics.RecordTokenIssued(models.TokenTypeAccess)
	h.metrics.RecordTokenIssued(models.TokenTypeRefresh)
	response.JSON(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange refresh token for new access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshTokenRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refresh payload"))
		return
	}

	res, err := h.service.Refresh(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordAuthFailure("refresh")
		response.Error(c, err)
		return
	}

	h.metrics.RecordTokenIssued(models.TokenTypeAccess)
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Revoke a token
// @Description Revoke the presented token; revoking an already revoked token succeeds
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LogoutRequest true "Token to revoke"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "token required"))
		return
	}

	if err := h.service.Revoke(c.Request.Context(), req.Token); err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordTokenRevoked()
	response.NoContent(c)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated caller's identity
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"id":   claims.UserID,
		"role": claims.Role,
	}, nil)
}
