package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/internal/service"
	"github.com/noah-isme/schoolhub-api/pkg/response"
)

type contactService interface {
	Submit(ctx context.Context, req service.ContactRequest) (*models.ContactMessage, error)
}

// ContactHandler accepts public contact-form submissions.
type ContactHandler struct {
	service contactService
}

func NewContactHandler(svc contactService) *ContactHandler {
	return &ContactHandler{service: svc}
}

// Submit godoc
// @Summary Send a contact message
// @Description Public endpoint. Input is sanitised and the administrator is notified by email.
// @Tags Contact
// @Accept json
// @Produce json
// @Param payload body service.ContactRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /api/contact [post]
func (h *ContactHandler) Submit(c *gin.Context) {
	var req service.ContactRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}
