package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hackathon/internal/hackathon"
	"hackathon/internal/pagination"
)

type hackathonRequest struct {
	Title            *string `json:"title"`
	ClientName       *string `json:"clientName"`
	ExecutionDate    *string `json:"executionDate"`
	ExecutedBy       *string `json:"executedBy"`
	Description      *string `json:"description"`
	RegistrationLink *string `json:"registrationLink" binding:"omitempty,url"`
	SkillsFocused    *string `json:"skillsFocused"`
	Status           *string `json:"status"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Handler) createHackathon(c *gin.Context) {
	var req hackathonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	created, err := h.Hackathons.Create(c.Request.Context(), hackathon.Hackathon{
		Title:            deref(req.Title),
		ClientName:       req.ClientName,
		ExecutionDate:    req.ExecutionDate,
		ExecutedBy:       req.ExecutedBy,
		Description:      deref(req.Description),
		RegistrationLink: req.RegistrationLink,
		SkillsFocused:    req.SkillsFocused,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) listHackathons(c *gin.Context) {
	p := pagination.Parse(c.Query("page"), c.Query("limit"))
	rows, total, err := h.Hackathons.List(c.Request.Context(), c.Query("search"), p.PageSize, p.Offset())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(rows, total, p))
}

func (h *Handler) hackathonsByStatus(c *gin.Context) {
	limit, offset := pagination.DefaultPageSize, 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = min(v, pagination.MaxPageSize)
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	rows, err := h.Hackathons.ListByStatus(c.Request.Context(), c.Param("status"), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) getHackathon(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	found, err := h.Hackathons.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *Handler) updateHackathon(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req hackathonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	updated, err := h.Hackathons.Update(c.Request.Context(), id, hackathon.Patch{
		Title:            req.Title,
		ClientName:       req.ClientName,
		ExecutionDate:    req.ExecutionDate,
		ExecutedBy:       req.ExecutedBy,
		Description:      req.Description,
		RegistrationLink: req.RegistrationLink,
		SkillsFocused:    req.SkillsFocused,
		Status:           req.Status,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Hackathon updated", "data": updated})
}

func (h *Handler) deleteHackathon(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Hackathons.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Hackathon marked as deleted successfully"})
}

func (h *Handler) squadsPDF(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	data, err := h.Reports.SquadsPDF(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=hackathon_%d_squads.pdf", id))
	c.Data(http.StatusOK, "application/pdf", data)
}
