package handler

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Handler) uploadImage(c *gin.Context) {
	id, err := strconv.ParseInt(c.PostForm("candidateId"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Candidate ID and image required")
		return
	}
	data, filename, err := readUpload(c, "image")
	if err != nil {
		h.uploadFailed(c, err, "Candidate ID and image required")
		return
	}
	url, err := h.Candidates.UploadPhoto(c.Request.Context(), id, filename, data)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image uploaded", "file": url})
}

// getImage serves a candidate's photo. Remote photos are redirected to,
// local ones are streamed from the upload directory.
func (h *Handler) getImage(c *gin.Context) {
	id, ok := idParam(c, "candidateId")
	if !ok {
		return
	}
	cand, err := h.Candidates.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ref := cand.PhotoURL
	if ref == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		c.Redirect(http.StatusFound, ref)
		return
	}
	data, err := h.Assets.Load(c.Request.Context(), ref)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
