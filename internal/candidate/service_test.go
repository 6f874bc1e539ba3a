package candidate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"hackathon/internal/apperr"
	"hackathon/internal/queue"
)

type memStore struct {
	mu         sync.Mutex
	nextID     int64
	rows       map[int64]*Candidate
	hackathons map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]*Candidate{}, hackathons: map[int64]bool{1: true}}
}

func (m *memStore) emailTaken(email string) bool {
	for _, c := range m.rows {
		if c.Email == email {
			return true
		}
	}
	return false
}

func (m *memStore) Insert(_ context.Context, c *Candidate, qrFor func(int64) string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(c.Email) {
		return apperr.Conflict("Candidate with this email already exists")
	}
	m.nextID++
	c.ID = m.nextID
	qr := qrFor(c.ID)
	c.QRCode = &qr
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memStore) InsertBatch(ctx context.Context, rows []Candidate, qrFor func(int64) string) ([]Candidate, error) {
	var out []Candidate
	for i := range rows {
		c := rows[i]
		if err := m.Insert(ctx, &c, qrFor); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) HackathonExists(_ context.Context, id int64) (bool, error) {
	return m.hackathons[id], nil
}

func (m *memStore) Get(_ context.Context, id int64) (Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return Candidate{}, errCandidateNotFound
	}
	return *c, nil
}

func (m *memStore) GetByQR(_ context.Context, qr string) (Candidate, error) {
	for _, c := range m.rows {
		if c.QRCode != nil && *c.QRCode == qr {
			return *c, nil
		}
	}
	return Candidate{}, errCandidateNotFound
}

func (m *memStore) GetByEmailPhone(_ context.Context, email, phone string) (Candidate, error) {
	for _, c := range m.rows {
		if strings.EqualFold(c.Email, email) && c.Phone == phone {
			return *c, nil
		}
	}
	return Candidate{}, errCandidateNotFound
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]Candidate, int, error) {
	var out []Candidate
	for _, c := range m.rows {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *memStore) Update(_ context.Context, id int64, p Patch) error {
	c, ok := m.rows[id]
	if !ok {
		return errCandidateNotFound
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return errCandidateNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memStore) AssignQR(_ context.Context, id int64, qr string) (string, bool, error) {
	c, ok := m.rows[id]
	if !ok {
		return "", false, errCandidateNotFound
	}
	if c.QRCode != nil {
		return *c.QRCode, false, nil
	}
	c.QRCode = &qr
	return qr, true, nil
}

func (m *memStore) SetQRImage(_ context.Context, id int64, url string) error {
	c, ok := m.rows[id]
	if !ok {
		return errCandidateNotFound
	}
	c.QRImageURL = url
	return nil
}

func (m *memStore) SetPhoto(_ context.Context, id int64, url string) error {
	c, ok := m.rows[id]
	if !ok {
		return errCandidateNotFound
	}
	c.PhotoURL = url
	return nil
}

func (m *memStore) ClearAll(context.Context) error {
	m.rows = map[int64]*Candidate{}
	return nil
}

type recordingQueue struct {
	msgs []queue.Message
	err  error
}

func (q *recordingQueue) Publish(_ context.Context, msg queue.Message) error {
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

type memAssets struct {
	saved map[string][]byte
}

func (a *memAssets) Save(_ context.Context, folder, name string, data []byte) (string, error) {
	if a.saved == nil {
		a.saved = map[string][]byte{}
	}
	key := "/uploads/" + folder + "/" + name
	a.saved[key] = data
	return key, nil
}

func TestCreateAssignsQRAndQueuesRender(t *testing.T) {
	repo, jobs := newMemStore(), &recordingQueue{}
	svc := NewService(repo, jobs, nil)

	c, err := svc.Create(context.Background(), Candidate{Name: " Ada ", Email: "ADA@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Name != "Ada" || c.Email != "ada@example.com" {
		t.Errorf("fields not normalised: %+v", c)
	}
	if c.QRCode == nil || !strings.HasPrefix(*c.QRCode, "HACKATHON_1_") {
		t.Errorf("unexpected qr %v", c.QRCode)
	}
	if len(jobs.msgs) != 1 || jobs.msgs[0].Type != queue.TypeRenderQR {
		t.Fatalf("expected one render job, got %+v", jobs.msgs)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)
	ctx := context.Background()
	hid := int64(99)

	cases := []struct {
		name string
		in   Candidate
		kind error
	}{
		{"missing name", Candidate{Email: "a@b.c"}, apperr.ErrValidation},
		{"bad email", Candidate{Name: "A", Email: "nope"}, apperr.ErrValidation},
		{"unknown hackathon", Candidate{Name: "A", Email: "a@b.c", HackathonID: &hid}, apperr.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.in); !errors.Is(err, tc.kind) {
				t.Fatalf("got %v, want %v", err, tc.kind)
			}
		})
	}

	if _, err := svc.Create(ctx, Candidate{Name: "A", Email: "dup@b.c"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, Candidate{Name: "B", Email: "DUP@b.c"}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestCreateSurvivesQueueFailure(t *testing.T) {
	svc := NewService(newMemStore(), &recordingQueue{err: errors.New("redis down")}, nil)
	if _, err := svc.Create(context.Background(), Candidate{Name: "A", Email: "a@b.c"}); err != nil {
		t.Fatalf("publish failure must not fail create: %v", err)
	}
}

func TestImportSkipsExistingEmails(t *testing.T) {
	repo, jobs := newMemStore(), &recordingQueue{}
	svc := NewService(repo, jobs, nil)
	ctx := context.Background()
	if _, err := svc.Create(ctx, Candidate{Name: "Old", Email: "old@example.com"}); err != nil {
		t.Fatal(err)
	}
	jobs.msgs = nil

	csv := "name,email\nOld,old@example.com\nNew,new@example.com\n"
	res, err := svc.Import(ctx, 1, "people.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 1 || res.Format != "CSV" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Candidates[0].HackathonID == nil || *res.Candidates[0].HackathonID != 1 {
		t.Errorf("hackathon id not applied")
	}
	if len(jobs.msgs) != 1 {
		t.Errorf("expected one render job, got %d", len(jobs.msgs))
	}

	if _, err := svc.Import(ctx, 42, "people.csv", strings.NewReader(csv)); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected invalid hackathon, got %v", err)
	}
}

func TestGenerateQRIsIdempotent(t *testing.T) {
	repo, jobs := newMemStore(), &recordingQueue{}
	svc := NewService(repo, jobs, nil)
	ctx := context.Background()
	c, _ := svc.Create(ctx, Candidate{Name: "A", Email: "a@b.c"})

	code, created, err := svc.GenerateQR(ctx, c.ID)
	if err != nil {
		t.Fatalf("GenerateQR: %v", err)
	}
	if created || code != *c.QRCode {
		t.Fatalf("existing code must be kept: created=%v code=%s", created, code)
	}

	repo.rows[c.ID].QRCode = nil
	code, created, _ = svc.GenerateQR(ctx, c.ID)
	if !created || code == *c.QRCode {
		t.Fatalf("expected a fresh code, created=%v", created)
	}

	if _, _, err := svc.GenerateQR(ctx, 404); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestQRLookups(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)
	ctx := context.Background()
	c, _ := svc.Create(ctx, Candidate{Name: "A", Email: "a@b.c", Phone: "123"})

	got, err := svc.GetByQR(ctx, " "+*c.QRCode+" ")
	if err != nil || got.ID != c.ID {
		t.Fatalf("GetByQR: %v %+v", err, got)
	}
	if _, err := svc.GetByQR(ctx, "HACKATHON_9_000000000000"); apperr.Message(err) != "Invalid QR code" {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := svc.GetByQR(ctx, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if got, err := svc.Lookup(ctx, "A@B.C", "123"); err != nil || got.ID != c.ID {
		t.Fatalf("Lookup: %v", err)
	}
	if _, err := svc.Lookup(ctx, "a@b.c", "999"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	url, code, err := svc.QRImage(ctx, c.ID)
	if err != nil || code != *c.QRCode || !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("QRImage: %v", err)
	}
}

func TestRenderAndStoreQR(t *testing.T) {
	repo, assets := newMemStore(), &memAssets{}
	svc := NewService(repo, nil, assets)
	ctx := context.Background()
	c, _ := svc.Create(ctx, Candidate{Name: "A", Email: "a@b.c"})

	url, err := svc.RenderAndStoreQR(ctx, c.ID)
	if err != nil {
		t.Fatalf("RenderAndStoreQR: %v", err)
	}
	if repo.rows[c.ID].QRImageURL != url || len(assets.saved[url]) == 0 {
		t.Fatalf("image not recorded: %q", url)
	}

	if _, err := NewService(repo, nil, nil).RenderAndStoreQR(ctx, c.ID); err == nil {
		t.Fatal("expected error without asset store")
	}
}

func TestUpdateRequiresFields(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)
	if err := svc.Update(context.Background(), 1, Patch{}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	bad := "nope"
	if err := svc.Update(context.Background(), 1, Patch{Email: &bad}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSaveDocument(t *testing.T) {
	assets := &memAssets{}
	svc := NewService(newMemStore(), nil, assets)
	ctx := context.Background()

	url, err := svc.SaveDocument(ctx, "resumes", "My CV.PDF", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/resumes/my-cv_") || !strings.HasSuffix(url, ".pdf") {
		t.Fatalf("unexpected url %q", url)
	}
	if _, err := svc.SaveDocument(ctx, "resumes", "empty.pdf", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := NewService(newMemStore(), nil, nil).SaveDocument(ctx, "resumes", "a.pdf", []byte("x")); err == nil {
		t.Fatal("expected error without an asset store")
	}
}
