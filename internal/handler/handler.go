package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"hackathon/internal/apperr"
	"hackathon/internal/attendance"
	"hackathon/internal/auth"
	"hackathon/internal/candidate"
	"hackathon/internal/hackathon"
	"hackathon/internal/metrics"
	"hackathon/internal/report"
	"hackathon/internal/squad"
)

// AdminService authenticates operators.
type AdminService interface {
	Login(ctx context.Context, username, password string) (auth.Admin, auth.Token, error)
	Create(ctx context.Context, username, password string, authenticated bool) (auth.Admin, error)
	Me(ctx context.Context, claims auth.Claims) (auth.Admin, error)
}

// CandidateService is the candidate directory.
type CandidateService interface {
	Create(ctx context.Context, c candidate.Candidate) (candidate.Candidate, error)
	Import(ctx context.Context, hackathonID int64, filename string, r io.Reader) (candidate.ImportResult, error)
	Get(ctx context.Context, id int64) (candidate.Candidate, error)
	Lookup(ctx context.Context, email, phone string) (candidate.Candidate, error)
	List(ctx context.Context, f candidate.ListFilter) ([]candidate.Candidate, int, error)
	Update(ctx context.Context, id int64, p candidate.Patch) error
	Delete(ctx context.Context, id int64) error
	ClearAll(ctx context.Context) error
	QRCode(ctx context.Context, id int64) (string, error)
	QRImage(ctx context.Context, id int64) (dataURL, code string, err error)
	GenerateQR(ctx context.Context, id int64) (string, bool, error)
	UploadPhoto(ctx context.Context, id int64, filename string, data []byte) (string, error)
	SaveDocument(ctx context.Context, folder, filename string, data []byte) (string, error)
}

// AttendanceService is the attendance ledger.
type AttendanceService interface {
	RecordScan(ctx context.Context, req attendance.ScanRequest) (attendance.Outcome, error)
	ManualAdjust(ctx context.Context, id int64, req attendance.AdjustRequest) (attendance.Record, error)
	List(ctx context.Context, f attendance.Filter) ([]attendance.Entry, int, error)
	Stats(ctx context.Context, date string) (attendance.Stats, error)
	CandidateHistory(ctx context.Context, candidateID int64) ([]attendance.Entry, error)
}

// SquadService is the squad roster.
type SquadService interface {
	Create(ctx context.Context, name string, hackathonID *int64, memberIDs []int64) (squad.Squad, error)
	Update(ctx context.Context, id int64, name string, memberIDs *[]int64) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (squad.Squad, error)
	List(ctx context.Context, hackathonID *int64) ([]squad.Squad, error)
	AvailableCandidates(ctx context.Context) ([]candidate.Candidate, error)
}

// HackathonService is the hackathon registry.
type HackathonService interface {
	Create(ctx context.Context, h hackathon.Hackathon) (hackathon.Hackathon, error)
	Get(ctx context.Context, id int64) (hackathon.Hackathon, error)
	List(ctx context.Context, search string, limit, offset int) ([]hackathon.Hackathon, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]hackathon.Hackathon, error)
	Update(ctx context.Context, id int64, p hackathon.Patch) (hackathon.Hackathon, error)
	Delete(ctx context.Context, id int64) error
}

// ReportService renders reports.
type ReportService interface {
	Comprehensive(ctx context.Context) (report.Comprehensive, error)
	Workbook(ctx context.Context) ([]byte, string, error)
	SquadsPDF(ctx context.Context, hackathonID int64) ([]byte, error)
}

// AssetLoader reads stored photos back.
type AssetLoader interface {
	Load(ctx context.Context, ref string) ([]byte, error)
}

// Deps are the collaborators the routes call into.
type Deps struct {
	Admins     AdminService
	Candidates CandidateService
	Attendance AttendanceService
	Squads     SquadService
	Hackathons HackathonService
	Reports    ReportService
	Assets     AssetLoader
	Metrics    *metrics.Metrics

	SigningKey     string
	Issuer         string
	MaxUploadBytes int64

	// Location reads timestamps that carry no zone; nil means UTC.
	Location *time.Location
}

// Handler serves the /api routes.
type Handler struct {
	Deps
}

// New creates a handler.
func New(d Deps) *Handler {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 10 << 20
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &Handler{Deps: d}
}

// Register mounts every /api route on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	api.POST("/admin/login", h.login)
	api.POST("/admin/create", auth.OptionalAdminAuth(h.SigningKey, h.Issuer), h.createAdmin)

	secured := api.Group("", auth.AdminAuth(h.SigningKey, h.Issuer))
	secured.GET("/admin/me", h.me)

	cand := secured.Group("/candidates")
	cand.GET("", h.listCandidates)
	cand.POST("", h.createCandidate)
	cand.GET("/lookup", h.lookupCandidate)
	cand.POST("/import-excel", h.limitBody, h.importCandidates)
	cand.DELETE("/clear-all", h.clearCandidates)
	cand.GET("/:id", h.getCandidate)
	cand.PUT("/:id", h.limitBody, h.updateCandidate)
	cand.DELETE("/:id", h.deleteCandidate)
	cand.GET("/:id/qr-code", h.candidateQRCode)
	cand.GET("/:id/qr-image", h.candidateQRImage)
	cand.POST("/:id/generate-qr", h.generateQR)

	att := secured.Group("/attendance")
	att.POST("/scan", h.scan)
	att.POST("/scan-qr", h.scanQR)
	att.POST("/scan-qr-scanner", h.scanCandidateID)
	att.GET("", h.listAttendance)
	att.GET("/stats", h.attendanceStats)
	att.GET("/candidate/:id", h.candidateAttendance)
	att.PUT("/:id", h.adjustAttendance)

	sq := secured.Group("/squads")
	sq.POST("", h.createSquad)
	sq.GET("", h.listSquads)
	sq.GET("/available-candidates", h.availableCandidates)
	sq.GET("/:id", h.getSquad)
	sq.PUT("/:id", h.updateSquad)
	sq.DELETE("/:id", h.deleteSquad)

	hk := secured.Group("/hackathon")
	hk.POST("/create", h.createHackathon)
	hk.GET("", h.listHackathons)
	hk.GET("/status/:status", h.hackathonsByStatus)
	hk.GET("/:id", h.getHackathon)
	hk.PUT("/:id", h.updateHackathon)
	hk.DELETE("/:id", h.deleteHackathon)
	hk.GET("/:id/squads/pdf", h.squadsPDF)

	rep := secured.Group("/reports")
	rep.GET("/comprehensive", h.comprehensiveReport)
	rep.GET("/download-excel", h.downloadExcel)

	img := secured.Group("/image")
	img.POST("/upload", h.limitBody, h.uploadImage)
	img.GET("/:candidateId", h.getImage)
}

// fail writes err as {"error": ...} with its mapped status. Server errors are
// logged with their cause and answered with a generic message.
func fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// bindError turns a binding failure into a client message naming the first
// offending field.
func bindError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", fe.Field())
		case "email":
			return "Invalid email address"
		case "min", "max", "gt", "gte", "lte":
			return fmt.Sprintf("%s is out of range", fe.Field())
		}
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
	return "Invalid request body"
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid id")
		return 0, false
	}
	return id, true
}

// limitBody caps multipart request bodies at MaxUploadBytes.
func (h *Handler) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	c.Next()
}

func (h *Handler) uploadFailed(c *gin.Context, err error, missing string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("File exceeds %d MB", h.MaxUploadBytes>>20)})
		return
	}
	badRequest(c, missing)
}

func readUpload(c *gin.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, fh.Filename, nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func queryID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}
