package attendance

import (
	"context"
	"errors"
	"time"

	"hackathon/internal/apperr"
	"hackathon/internal/candidate"
)

// Store is the persistence the ledger needs.
type Store interface {
	FindForDay(ctx context.Context, candidateID int64, day string) (*Record, error)
	Open(ctx context.Context, candidateID int64, day string, at time.Time) (Record, error)
	Close(ctx context.Context, id int64, at time.Time) (Record, error)
	Adjust(ctx context.Context, id int64, fn func(cur Record) (Record, error)) (Record, error)
	List(ctx context.Context, f Filter) ([]Entry, int, error)
	History(ctx context.Context, candidateID int64) ([]Entry, error)
	Stats(ctx context.Context, day string) (Stats, error)
}

// Candidates resolves scanned identifiers.
type Candidates interface {
	Get(ctx context.Context, id int64) (candidate.Candidate, error)
	GetByQR(ctx context.Context, qr string) (candidate.Candidate, error)
}

// Outcome is what a scan did, with the candidate and the resulting record.
type Outcome struct {
	Result    Result
	Candidate candidate.Candidate
	Record    Record
}

// Service resolves scans into check-ins and check-outs. Calendar days are
// taken in loc.
type Service struct {
	repo       Store
	candidates Candidates
	loc        *time.Location
	now        func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo Store, candidates Candidates, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, candidates: candidates, loc: loc, now: time.Now}
}

// Day returns the calendar day t falls on in the event time zone.
func (s *Service) Day(t time.Time) string {
	return t.In(s.loc).Format(DateLayout)
}

// RecordScan moves the candidate's record for today one step along
// no record -> present -> checked_out. A scan after check-out changes nothing.
func (s *Service) RecordScan(ctx context.Context, req ScanRequest) (Outcome, error) {
	c, err := s.resolve(ctx, req)
	if err != nil {
		return Outcome{}, err
	}

	now := s.now()
	day := s.Day(now)
	existing, err := s.repo.FindForDay(ctx, c.ID, day)
	if err != nil {
		return Outcome{}, err
	}

	switch {
	case existing == nil:
		rec, err := s.repo.Open(ctx, c.ID, day, now)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Result: CheckedIn, Candidate: c, Record: rec}, nil

	case existing.CheckOutTime == nil:
		at := now
		if at.Before(existing.CheckInTime) {
			at = existing.CheckInTime
		}
		rec, err := s.repo.Close(ctx, existing.ID, at)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Result: CheckedOut, Candidate: c, Record: rec}, nil
	}
	return Outcome{Result: AlreadyCheckedOut, Candidate: c, Record: *existing}, nil
}

func (s *Service) resolve(ctx context.Context, req ScanRequest) (candidate.Candidate, error) {
	switch {
	case req.QRCode != "":
		return s.candidates.GetByQR(ctx, req.QRCode)
	case req.CandidateID > 0:
		c, err := s.candidates.Get(ctx, req.CandidateID)
		if errors.Is(err, apperr.ErrNotFound) {
			return candidate.Candidate{}, apperr.NotFound("Invalid candidate")
		}
		return c, err
	}
	return candidate.Candidate{}, apperr.Invalid("QR code or candidate ID is required")
}

// ManualAdjust corrects a record. The result must stay consistent: a
// checked-out record has a check-out time no earlier than its check-in, and
// setting status back to present reopens the day.
func (s *Service) ManualAdjust(ctx context.Context, id int64, req AdjustRequest) (Record, error) {
	if req.Empty() {
		return Record{}, apperr.Invalid("No fields to update")
	}
	if req.Status != nil {
		switch *req.Status {
		case StatusPresent:
			if req.CheckOutTime != nil {
				return Record{}, apperr.Invalid("check_out_time cannot be set when status is present")
			}
		case StatusCheckedOut:
		default:
			return Record{}, apperr.Invalid("Invalid status %q, expected present or checked_out", *req.Status)
		}
	}
	return s.repo.Adjust(ctx, id, func(cur Record) (Record, error) {
		return s.applyAdjust(cur, req)
	})
}

func (s *Service) applyAdjust(cur Record, req AdjustRequest) (Record, error) {
	next := cur
	if req.CheckInTime != nil {
		next.CheckInTime = *req.CheckInTime
		next.Date = s.Day(*req.CheckInTime)
	}
	if req.CheckOutTime != nil {
		out := *req.CheckOutTime
		next.CheckOutTime = &out
		next.Status = StatusCheckedOut
	}
	if req.Status != nil {
		next.Status = *req.Status
		if next.Status == StatusPresent {
			next.CheckOutTime = nil
		}
	}

	if next.Status == StatusCheckedOut && next.CheckOutTime == nil {
		return Record{}, apperr.Invalid("check_out_time is required when status is checked_out")
	}
	if next.CheckOutTime != nil && next.CheckOutTime.Before(next.CheckInTime) {
		return Record{}, apperr.Invalid("check_out_time must not be before check_in_time")
	}
	return next, nil
}

// List returns a page of records joined with their candidates.
func (s *Service) List(ctx context.Context, f Filter) ([]Entry, int, error) {
	if err := validDate(f.Date); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, f)
}

// Stats aggregates over the same filter as List.
func (s *Service) Stats(ctx context.Context, date string) (Stats, error) {
	if err := validDate(date); err != nil {
		return Stats{}, err
	}
	return s.repo.Stats(ctx, date)
}

// CandidateHistory returns every record of one candidate, newest first.
func (s *Service) CandidateHistory(ctx context.Context, candidateID int64) ([]Entry, error) {
	return s.repo.History(ctx, candidateID)
}

func validDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return apperr.Invalid("Invalid date %q, expected YYYY-MM-DD", date)
	}
	return nil
}
