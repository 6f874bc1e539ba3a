package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hackathon/internal/apperr"
	"hackathon/internal/attendance"
	"hackathon/internal/pagination"
)

type scanRequest struct {
	QRCode      string `json:"qrCode"`
	CandidateID int64  `json:"candidateId" binding:"gte=0"`
}

type adjustRequest struct {
	Status       *string `json:"status" binding:"omitempty,oneof=present checked_out"`
	CheckInTime  *string `json:"check_in_time"`
	CheckOutTime *string `json:"check_out_time"`
}

// Zoneless layouts are read in the event time zone.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

func parseTimestamp(field string, v *string, loc *time.Location) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, *v); err == nil {
		return &t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, *v, loc); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Invalid("%s must be RFC3339 or YYYY-MM-DD HH:MM:SS", field)
}

func (h *Handler) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	h.recordScan(c, attendance.ScanRequest{QRCode: req.QRCode, CandidateID: req.CandidateID})
}

func (h *Handler) scanQR(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.QRCode == "" {
		badRequest(c, "QR code is required")
		return
	}
	h.recordScan(c, attendance.ScanRequest{QRCode: req.QRCode})
}

func (h *Handler) scanCandidateID(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CandidateID == 0 {
		badRequest(c, "Candidate ID is required")
		return
	}
	h.recordScan(c, attendance.ScanRequest{CandidateID: req.CandidateID})
}

func (h *Handler) recordScan(c *gin.Context, req attendance.ScanRequest) {
	out, err := h.Attendance.RecordScan(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, apperr.ErrScanInProgress) {
			h.Metrics.ObserveScan("in_progress")
		} else {
			h.Metrics.ObserveScan("error")
		}
		fail(c, err)
		return
	}
	h.Metrics.ObserveScan(out.Result.String())
	c.JSON(http.StatusOK, gin.H{
		"message":    out.Result.Message(),
		"result":     out.Result.String(),
		"candidate":  out.Candidate,
		"attendance": out.Record,
	})
}

func (h *Handler) listAttendance(c *gin.Context) {
	p := pagination.Parse(c.Query("page"), c.Query("limit"))
	rows, total, err := h.Attendance.List(c.Request.Context(), attendance.Filter{
		Date:   c.Query("date"),
		Limit:  p.PageSize,
		Offset: p.Offset(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pagination.NewPage(rows, total, p))
}

func (h *Handler) attendanceStats(c *gin.Context) {
	stats, err := h.Attendance.Stats(c.Request.Context(), c.Query("date"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) candidateAttendance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rows, err := h.Attendance.CandidateHistory(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if rows == nil {
		rows = []attendance.Entry{}
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) adjustAttendance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	in, err := parseTimestamp("check_in_time", req.CheckInTime, h.Location)
	if err != nil {
		fail(c, err)
		return
	}
	out, err := parseTimestamp("check_out_time", req.CheckOutTime, h.Location)
	if err != nil {
		fail(c, err)
		return
	}
	updated, err := h.Attendance.ManualAdjust(c.Request.Context(), id, attendance.AdjustRequest{
		Status:       req.Status,
		CheckInTime:  in,
		CheckOutTime: out,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance updated successfully", "updated": updated})
}
