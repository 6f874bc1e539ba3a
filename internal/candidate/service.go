package candidate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/mail"
	"path/filepath"
	"strings"

	"hackathon/internal/apperr"
	"hackathon/internal/media"
	"hackathon/internal/queue"
)

// Store is the persistence the directory needs.
type Store interface {
	Insert(ctx context.Context, c *Candidate, qrFor func(id int64) string) error
	InsertBatch(ctx context.Context, rows []Candidate, qrFor func(id int64) string) ([]Candidate, error)
	HackathonExists(ctx context.Context, id int64) (bool, error)
	Get(ctx context.Context, id int64) (Candidate, error)
	GetByQR(ctx context.Context, qr string) (Candidate, error)
	GetByEmailPhone(ctx context.Context, email, phone string) (Candidate, error)
	List(ctx context.Context, f ListFilter) ([]Candidate, int, error)
	Update(ctx context.Context, id int64, p Patch) error
	Delete(ctx context.Context, id int64) error
	AssignQR(ctx context.Context, id int64, qr string) (string, bool, error)
	SetQRImage(ctx context.Context, id int64, url string) error
	SetPhoto(ctx context.Context, id int64, url string) error
	ClearAll(ctx context.Context) error
}

// Publisher enqueues background jobs.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// AssetStore persists binary assets and returns where they can be fetched.
type AssetStore interface {
	Save(ctx context.Context, folder, name string, data []byte) (string, error)
}

// ImportResult summarises a roster import.
type ImportResult struct {
	Format     string      `json:"-"`
	Imported   int         `json:"importedCount"`
	Candidates []Candidate `json:"candidates"`
}

// Service implements the candidate directory.
type Service struct {
	repo   Store
	jobs   Publisher
	assets AssetStore
	qrFor  func(id int64) string
}

// NewService wires the directory. jobs and assets may be nil, in which case
// QR images are rendered on demand only.
func NewService(repo Store, jobs Publisher, assets AssetStore) *Service {
	return &Service{repo: repo, jobs: jobs, assets: assets, qrFor: NewQRPayload}
}

var errNoAssets = errors.New("no asset store configured")

// Create registers one candidate and assigns its QR payload.
func (s *Service) Create(ctx context.Context, c Candidate) (Candidate, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.Name == "" || c.Email == "" {
		return Candidate{}, apperr.Invalid("Name and email are required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return Candidate{}, apperr.Invalid("Invalid email address")
	}
	if c.HackathonID != nil {
		if err := s.requireHackathon(ctx, *c.HackathonID); err != nil {
			return Candidate{}, err
		}
	}
	if err := s.repo.Insert(ctx, &c, s.qrFor); err != nil {
		return Candidate{}, err
	}
	s.enqueueRender(ctx, c.ID)
	return c, nil
}

// Import parses an uploaded roster and inserts every row whose email is not
// yet registered, all in one transaction.
func (s *Service) Import(ctx context.Context, hackathonID int64, filename string, r io.Reader) (ImportResult, error) {
	if err := s.requireHackathon(ctx, hackathonID); err != nil {
		return ImportResult{}, err
	}
	rows, err := ParseRoster(filename, r)
	if err != nil {
		return ImportResult{}, err
	}
	for i := range rows {
		rows[i].HackathonID = &hackathonID
	}

	imported, err := s.repo.InsertBatch(ctx, rows, s.qrFor)
	if err != nil {
		return ImportResult{}, err
	}
	for _, c := range imported {
		s.enqueueRender(ctx, c.ID)
	}
	if imported == nil {
		imported = []Candidate{}
	}

	format := "Excel"
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		format = "CSV"
	}
	log.Printf("imported %d of %d roster rows for hackathon %d", len(imported), len(rows), hackathonID)
	return ImportResult{Format: format, Imported: len(imported), Candidates: imported}, nil
}

func (s *Service) requireHackathon(ctx context.Context, id int64) error {
	ok, err := s.repo.HackathonExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Invalid("Invalid hackathon ID")
	}
	return nil
}

// Get returns a candidate by id.
func (s *Service) Get(ctx context.Context, id int64) (Candidate, error) {
	return s.repo.Get(ctx, id)
}

// GetByQR resolves a scanned QR payload.
func (s *Service) GetByQR(ctx context.Context, qr string) (Candidate, error) {
	qr = strings.TrimSpace(qr)
	if qr == "" {
		return Candidate{}, apperr.Invalid("QR code is required")
	}
	c, err := s.repo.GetByQR(ctx, qr)
	if errors.Is(err, apperr.ErrNotFound) {
		return Candidate{}, apperr.NotFound("Invalid QR code")
	}
	return c, err
}

// Lookup finds a candidate by email and phone together.
func (s *Service) Lookup(ctx context.Context, email, phone string) (Candidate, error) {
	email, phone = strings.TrimSpace(email), strings.TrimSpace(phone)
	if email == "" || phone == "" {
		return Candidate{}, apperr.Invalid("Email and phone are required")
	}
	return s.repo.GetByEmailPhone(ctx, email, phone)
}

// List returns a page of candidates.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Candidate, int, error) {
	return s.repo.List(ctx, f)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, p Patch) error {
	if p.Empty() {
		return apperr.Invalid("No fields to update")
	}
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return apperr.Invalid("Invalid email address")
		}
		p.Email = &email
	}
	return s.repo.Update(ctx, id, p)
}

// Delete removes a candidate.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ClearAll removes every candidate, attendance record and squad.
func (s *Service) ClearAll(ctx context.Context) error {
	return s.repo.ClearAll(ctx)
}

// QRCode returns the candidate's QR payload.
func (s *Service) QRCode(ctx context.Context, id int64) (string, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if c.QRCode == nil || *c.QRCode == "" {
		return "", apperr.NotFound("QR code not found")
	}
	return *c.QRCode, nil
}

// QRImage renders the candidate's QR code as a PNG data URL.
func (s *Service) QRImage(ctx context.Context, id int64) (dataURL, code string, err error) {
	code, err = s.QRCode(ctx, id)
	if err != nil {
		return "", "", err
	}
	png, err := RenderQR(code, QRImageSize)
	if err != nil {
		return "", "", fmt.Errorf("qr image for candidate %d: %w", id, err)
	}
	return PNGDataURL(png), code, nil
}

// GenerateQR assigns a QR payload if the candidate has none. An existing
// payload is returned unchanged; codes stay stable for the candidate's lifetime.
func (s *Service) GenerateQR(ctx context.Context, id int64) (string, bool, error) {
	code, created, err := s.repo.AssignQR(ctx, id, s.qrFor(id))
	if err != nil {
		return "", false, err
	}
	if created {
		s.enqueueRender(ctx, id)
	}
	return code, created, nil
}

// RenderAndStoreQR renders the QR PNG for a candidate, stores it and records
// its location. The worker calls this for every render job.
func (s *Service) RenderAndStoreQR(ctx context.Context, id int64) (string, error) {
	if s.assets == nil {
		return "", errNoAssets
	}
	code, err := s.QRCode(ctx, id)
	if err != nil {
		return "", err
	}
	png, err := RenderQR(code, QRImageSize)
	if err != nil {
		return "", err
	}
	url, err := s.assets.Save(ctx, "qr", fmt.Sprintf("qr_%d.png", id), png)
	if err != nil {
		return "", fmt.Errorf("store qr image: %w", err)
	}
	if err := s.repo.SetQRImage(ctx, id, url); err != nil {
		return "", err
	}
	return url, nil
}

// UploadPhoto normalises an uploaded image and stores it as the candidate's photo.
func (s *Service) UploadPhoto(ctx context.Context, id int64, filename string, data []byte) (string, error) {
	if s.assets == nil {
		return "", errNoAssets
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return "", err
	}
	jpg, err := media.NormalizePhoto(data)
	if err != nil {
		return "", apperr.Invalid("Unsupported image: %v", err)
	}
	url, err := s.assets.Save(ctx, "photos", media.UniqueName(filename, ".jpg"), jpg)
	if err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	if err := s.repo.SetPhoto(ctx, id, url); err != nil {
		return "", err
	}
	return url, nil
}

// SaveDocument stores an uploaded resume or selfie under folder and returns
// its location for use in a Patch.
func (s *Service) SaveDocument(ctx context.Context, folder, filename string, data []byte) (string, error) {
	if s.assets == nil {
		return "", errNoAssets
	}
	if len(data) == 0 {
		return "", apperr.Invalid("Uploaded file is empty")
	}
	url, err := s.assets.Save(ctx, folder, media.UniqueName(filename, strings.ToLower(filepath.Ext(filename))), data)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", folder, err)
	}
	return url, nil
}

func (s *Service) enqueueRender(ctx context.Context, id int64) {
	if s.jobs == nil {
		return
	}
	if err := s.jobs.Publish(ctx, queue.RenderQR(id)); err != nil {
		log.Printf("queue publish failed for candidate %d: %v", id, err)
	}
}
