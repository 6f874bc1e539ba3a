package candidate

import "time"

// Candidate is a registered hackathon participant.
type Candidate struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Age         *int      `json:"age"`
	Degree      string    `json:"degree"`
	University  string    `json:"university"`
	Batch       string    `json:"batch"`
	Skills      string    `json:"skills"`
	QRCode      *string   `json:"qr_code"`
	QRImageURL  string    `json:"qr_image_url,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	ResumePath  string    `json:"resume_path,omitempty"`
	SelfiePath  string    `json:"selfie_path,omitempty"`
	HackathonID *int64    `json:"hackathon_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Patch lists the optional fields of a candidate update. Nil means untouched.
type Patch struct {
	Name       *string
	Age        *int
	Degree     *string
	University *string
	Batch      *string
	Phone      *string
	Email      *string
	Skills     *string
	ResumePath *string
	SelfiePath *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Age == nil && p.Degree == nil && p.University == nil &&
		p.Batch == nil && p.Phone == nil && p.Email == nil && p.Skills == nil &&
		p.ResumePath == nil && p.SelfiePath == nil
}

// ListFilter selects a page of candidates, optionally matching a search term
// against name, email, university, degree and skills.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
