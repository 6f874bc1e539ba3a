package attendance

import "time"

// Attendance statuses.
const (
	StatusPresent    = "present"
	StatusCheckedOut = "checked_out"
)

// DateLayout is the calendar-day format used in filters and stored rows.
const DateLayout = "2006-01-02"

// Record is one candidate's attendance for one calendar day.
type Record struct {
	ID           int64      `json:"id"`
	CandidateID  int64      `json:"candidate_id"`
	Date         string     `json:"attendance_date"`
	CheckInTime  time.Time  `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time"`
	Status       string     `json:"status"`
}

// Entry is a record joined with the candidate it belongs to.
type Entry struct {
	Record
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	University string `json:"university"`
	Degree     string `json:"degree"`
}

// Filter selects a page of records, optionally for one calendar day.
type Filter struct {
	Date   string
	Limit  int
	Offset int
}

// Stats are aggregate counts over the same predicate as a listing.
type Stats struct {
	Total            int `json:"total_attendance"`
	CurrentlyPresent int `json:"currently_present"`
	CheckedOut       int `json:"checked_out"`
}

// Result is the state transition a scan produced.
type Result int

const (
	CheckedIn Result = iota
	CheckedOut
	AlreadyCheckedOut
)

// Message is the operator-facing text for a scan result.
func (r Result) Message() string {
	switch r {
	case CheckedIn:
		return "Check-in successful"
	case CheckedOut:
		return "Check-out successful"
	default:
		return "Already checked out today"
	}
}

func (r Result) String() string {
	switch r {
	case CheckedIn:
		return "checked_in"
	case CheckedOut:
		return "checked_out"
	default:
		return "already_checked_out"
	}
}

// ScanRequest identifies the scanned candidate by QR payload or by id.
type ScanRequest struct {
	QRCode      string
	CandidateID int64
}

// AdjustRequest is a manual correction. Nil fields are left as they are.
type AdjustRequest struct {
	Status       *string
	CheckInTime  *time.Time
	CheckOutTime *time.Time
}

// Empty reports whether the request changes nothing.
func (r AdjustRequest) Empty() bool {
	return r.Status == nil && r.CheckInTime == nil && r.CheckOutTime == nil
}
