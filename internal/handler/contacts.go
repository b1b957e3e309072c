// internal/handler/contacts.go
package handler

import (
	"net/http"

	"studio-settlement/internal/domain"

	"github.com/gin-gonic/gin"
)

type ContactRequest struct {
	Name    string `json:"name" validate:"required,notblank,max=100"`
	Company string `json:"company" validate:"max=100"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=30"`
	Memo    string `json:"memo" validate:"max=2000"`
}

func (r ContactRequest) toDomain(id int64) domain.Contact {
	return domain.Contact{ID: id, Name: r.Name, Company: r.Company, Email: r.Email, Phone: r.Phone, Memo: r.Memo}
}

// ListContacts godoc
// @Summary List client contacts
// @Tags contacts
// @Produce json
// @Param q query string false "Matches name, company or email"
// @Success 200 {array} domain.Contact
// @Router /api/v1/contacts [get]
func (h *Handler) ListContacts(c *gin.Context) {
	contacts, err := h.store.ListContacts(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err, "list contacts")
		return
	}
	c.JSON(http.StatusOK, contacts)
}

// GetContact godoc
// @Summary Get a contact
// @Tags contacts
// @Produce json
// @Param id path int true "Contact id"
// @Success 200 {object} domain.Contact
// @Failure 404 {object} map[string]string
// @Router /api/v1/contacts/{id} [get]
func (h *Handler) GetContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	contact, err := h.store.GetContact(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get contact")
		return
	}
	if contact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
		return
	}
	c.JSON(http.StatusOK, contact)
}

// CreateContact godoc
// @Summary Add a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param request body ContactRequest true "Contact"
// @Success 201 {object} domain.Contact
// @Router /api/v1/contacts [post]
func (h *Handler) CreateContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact := req.toDomain(0)
	id, err := h.store.CreateContact(c.Request.Context(), contact)
	if err != nil {
		respondError(c, err, "create contact")
		return
	}
	contact.ID = id
	c.JSON(http.StatusCreated, contact)
}

// UpdateContact godoc
// @Summary Replace a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param id path int true "Contact id"
// @Param request body ContactRequest true "Contact"
// @Success 200 {object} domain.Contact
// @Router /api/v1/contacts/{id} [put]
func (h *Handler) UpdateContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := validateStruct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact := req.toDomain(id)
	if err := h.store.UpdateContact(c.Request.Context(), contact); err != nil {
		respondError(c, err, "update contact")
		return
	}
	c.JSON(http.StatusOK, contact)
}

// DeleteContact godoc
// @Summary Remove a contact; its projects keep going without one
// @Tags contacts
// @Param id path int true "Contact id"
// @Success 204
// @Router /api/v1/contacts/{id} [delete]
func (h *Handler) DeleteContact(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteContact(c.Request.Context(), id); err != nil {
		respondError(c, err, "delete contact")
		return
	}
	c.Status(http.StatusNoContent)
}
