package squad

import (
	"context"
	"strings"
	"time"

	"hackathon/internal/apperr"
	"hackathon/internal/attendance"
	"hackathon/internal/candidate"
)

// Store is the persistence the roster needs.
type Store interface {
	Create(ctx context.Context, name string, hackathonID *int64, memberIDs []int64) (Squad, error)
	Update(ctx context.Context, id int64, name string, memberIDs *[]int64) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Squad, error)
	List(ctx context.Context, hackathonID *int64) ([]Squad, error)
	PresentIDs(ctx context.Context, day string) ([]int64, error)
	AssignedIDs(ctx context.Context) ([]int64, error)
	CandidatesByID(ctx context.Context, ids []int64) ([]candidate.Candidate, error)
}

// Service manages squads and the pool of candidates still available for one.
type Service struct {
	repo Store
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a service backed by a repository. loc decides which
// calendar day counts as today; nil means UTC.
func NewService(repo Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// Create makes a squad with the given members. memberIDs must be non-nil but
// may be empty; duplicates are collapsed.
func (s *Service) Create(ctx context.Context, name string, hackathonID *int64, memberIDs []int64) (Squad, error) {
	name = strings.TrimSpace(name)
	if name == "" || memberIDs == nil {
		return Squad{}, apperr.Invalid("Name and memberIds required")
	}
	ids, err := distinct(memberIDs)
	if err != nil {
		return Squad{}, err
	}
	return s.repo.Create(ctx, name, hackathonID, ids)
}

// Update renames the squad and, when memberIDs is given, replaces the full
// membership with it. Members missing from the new set are removed.
func (s *Service) Update(ctx context.Context, id int64, name string, memberIDs *[]int64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Invalid("Name required")
	}
	if memberIDs != nil {
		ids, err := distinct(*memberIDs)
		if err != nil {
			return err
		}
		memberIDs = &ids
	}
	return s.repo.Update(ctx, id, name, memberIDs)
}

// Delete removes a squad and its memberships.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Get returns one squad with members.
func (s *Service) Get(ctx context.Context, id int64) (Squad, error) {
	return s.repo.Get(ctx, id)
}

// List returns all squads with members, newest first.
func (s *Service) List(ctx context.Context, hackathonID *int64) ([]Squad, error) {
	return s.repo.List(ctx, hackathonID)
}

// AvailableCandidates returns the candidates checked in today and not in any
// squad, ordered by name. It is a snapshot taken across separate reads.
func (s *Service) AvailableCandidates(ctx context.Context) ([]candidate.Candidate, error) {
	today := s.now().In(s.loc).Format(attendance.DateLayout)
	present, err := s.repo.PresentIDs(ctx, today)
	if err != nil {
		return nil, err
	}
	assigned, err := s.repo.AssignedIDs(ctx)
	if err != nil {
		return nil, err
	}

	taken := make(map[int64]struct{}, len(assigned))
	for _, id := range assigned {
		taken[id] = struct{}{}
	}
	free := make([]int64, 0, len(present))
	for _, id := range present {
		if _, ok := taken[id]; !ok {
			free = append(free, id)
		}
	}
	if len(free) == 0 {
		return []candidate.Candidate{}, nil
	}
	return s.repo.CandidatesByID(ctx, free)
}

func distinct(ids []int64) ([]int64, error) {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, apperr.Invalid("Invalid candidate id %d in memberIds", id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
