package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"hackathon/internal/apperr"
	"hackathon/internal/candidate"
	"hackathon/internal/pagination"
)

type createCandidateRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone"`
	Age         *int   `json:"age" binding:"omitempty,min=0,max=150"`
	Degree      string `json:"degree"`
	University  string `json:"university"`
	Batch       string `json:"batch"`
	Skills      string `json:"skills"`
	HackathonID *int64 `json:"hackathonId"`
}

type updateCandidateRequest struct {
	Name       *string `json:"name"`
	Age        *int    `json:"age" binding:"omitempty,min=0,max=150"`
	Degree     *string `json:"degree"`
	University *string `json:"university"`
	Batch      *string `json:"batch"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Skills     *string `json:"skills"`
}

func (h *Handler) listCandidates(c *gin.Context) {
	p := pagination.Parse(c.Query("page"), c.Query("limit"))
	rows, total, err := h.Candidates.List(c.Request.Context(), candidate.ListFilter{
		Search: c.Query("search"),
		Limit:  p.PageSize,
		Offset: p.Offset(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(rows, total, p))
}

func (h *Handler) createCandidate(c *gin.Context) {
	var req createCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	created, err := h.Candidates.Create(c.Request.Context(), candidate.Candidate{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Age:         req.Age,
		Degree:      req.Degree,
		University:  req.University,
		Batch:       req.Batch,
		Skills:      req.Skills,
		HackathonID: req.HackathonID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Candidate created successfully", "candidate": created})
}

func (h *Handler) lookupCandidate(c *gin.Context) {
	found, err := h.Candidates.Lookup(c.Request.Context(), c.Query("email"), c.Query("phone"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *Handler) importCandidates(c *gin.Context) {
	hackathonID, err := strconv.ParseInt(c.PostForm("hackathonId"), 10, 64)
	if err != nil || hackathonID <= 0 {
		badRequest(c, "Invalid hackathon ID")
		return
	}
	data, filename, err := readUpload(c, "excelFile")
	if err != nil {
		h.uploadFailed(c, err, "No file uploaded")
		return
	}
	res, err := h.Candidates.Import(c.Request.Context(), hackathonID, filename, bytes.NewReader(data))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       fmt.Sprintf("%s file processed successfully", res.Format),
		"importedCount": res.Imported,
		"candidates":    res.Candidates,
	})
}

func (h *Handler) clearCandidates(c *gin.Context) {
	if err := h.Candidates.ClearAll(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All data cleared successfully", "cleared": true})
}

func (h *Handler) getCandidate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	found, err := h.Candidates.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *Handler) updateCandidate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var (
		p   candidate.Patch
		err error
	)
	if isMultipart(c) {
		p, err = h.candidatePatchFromForm(c)
		if err != nil {
			fail(c, err)
			return
		}
	} else {
		var req updateCandidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, bindError(err))
			return
		}
		p = candidate.Patch{
			Name: req.Name, Age: req.Age, Degree: req.Degree, University: req.University,
			Batch: req.Batch, Phone: req.Phone, Email: req.Email, Skills: req.Skills,
		}
	}
	if err := h.Candidates.Update(c.Request.Context(), id, p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Candidate updated successfully"})
}

// candidatePatchFromForm reads a multipart update. Empty form values are
// ignored; resume and selfie files are stored and referenced by location.
func (h *Handler) candidatePatchFromForm(c *gin.Context) (candidate.Patch, error) {
	var p candidate.Patch
	text := func(field string) *string {
		v := strings.TrimSpace(c.PostForm(field))
		if v == "" {
			return nil
		}
		return &v
	}
	p.Name, p.Degree, p.University = text("name"), text("degree"), text("university")
	p.Batch, p.Phone, p.Email, p.Skills = text("batch"), text("phone"), text("email"), text("skills")
	if v := text("age"); v != nil {
		age, err := strconv.Atoi(*v)
		if err != nil || age < 0 || age > 150 {
			return p, apperr.Invalid("Invalid age")
		}
		p.Age = &age
	}

	for field, folder := range map[string]string{"resume": "resumes", "selfie": "selfies"} {
		if _, err := c.FormFile(field); err != nil {
			continue
		}
		data, name, err := readUpload(c, field)
		if err != nil {
			return p, apperr.Invalid("Could not read " + field)
		}
		url, err := h.Candidates.SaveDocument(c.Request.Context(), folder, name, data)
		if err != nil {
			return p, err
		}
		if field == "resume" {
			p.ResumePath = &url
		} else {
			p.SelfiePath = &url
		}
	}
	return p, nil
}

func (h *Handler) deleteCandidate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Candidates.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Candidate deleted successfully"})
}

func (h *Handler) candidateQRCode(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	code, err := h.Candidates.QRCode(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qrCode": code})
}

func (h *Handler) candidateQRImage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	dataURL, code, err := h.Candidates.QRImage(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qrCodeImage": dataURL, "qrCode": code})
}

func (h *Handler) generateQR(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	code, created, err := h.Candidates.GenerateQR(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	msg := "QR code generated"
	if !created {
		msg = "QR code already assigned"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "qrCode": code})
}
