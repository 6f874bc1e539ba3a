package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hackathon/internal/candidate"
)

type squadRequest struct {
	Name        string   `json:"name"`
	HackathonID *int64   `json:"hackathonId"`
	MemberIDs   *[]int64 `json:"memberIds"`
}

func (h *Handler) createSquad(c *gin.Context) {
	var req squadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	var members []int64
	if req.MemberIDs != nil {
		members = *req.MemberIDs
	}
	created, err := h.Squads.Create(c.Request.Context(), req.Name, req.HackathonID, members)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Squad created", "squad": created})
}

func (h *Handler) listSquads(c *gin.Context) {
	var hackathonID *int64
	if c.Query("hackathonId") != "" {
		id, ok := queryID(c, "hackathonId")
		if !ok {
			return
		}
		hackathonID = &id
	}
	squads, err := h.Squads.List(c.Request.Context(), hackathonID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, squads)
}

func (h *Handler) getSquad(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sq, err := h.Squads.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sq)
}

func (h *Handler) updateSquad(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req squadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	if err := h.Squads.Update(c.Request.Context(), id, req.Name, req.MemberIDs); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Squad updated"})
}

func (h *Handler) deleteSquad(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Squads.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Squad deleted"})
}

func (h *Handler) availableCandidates(c *gin.Context) {
	rows, err := h.Squads.AvailableCandidates(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if rows == nil {
		rows = []candidate.Candidate{}
	}
	c.JSON(http.StatusOK, rows)
}
