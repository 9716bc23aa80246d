package service

import (
	"time"

	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

// SchoolZone is the school's fixed local timezone. Every wall-clock
// comparison in the submission gate and the duplicate guard happens in this
// zone, regardless of where the server runs.
var SchoolZone = time.FixedZone("UTC+7", 7*60*60)

// DayBounds returns the inclusive start and end of t's calendar day in the
// school timezone (00:00:00.000 through 23:59:59.999...).
func DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(SchoolZone)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, SchoolZone)
	end := start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// WindowDecision is the outcome of evaluating the submission gate.
type WindowDecision struct {
	MorningOpen   bool `json:"morning_open"`
	AfternoonOpen bool `json:"afternoon_open"`
	// TargetDate is the local midnight the submission applies to: today for
	// the morning window, tomorrow for the afternoon window.
	TargetDate time.Time `json:"target_date"`
}

// Open reports whether submission is currently permitted.
func (d WindowDecision) Open() bool {
	return d.MorningOpen || d.AfternoonOpen
}

// SubmissionWindow gates absence-request submission to two daily windows:
// before 07:15 for same-day requests and from 12:00 for next-day requests.
// The 07:15-12:00 gap is an intentional blackout so a submission is never
// ambiguous between today and tomorrow.
type SubmissionWindow struct{}

// NewSubmissionWindow constructs the gate.
func NewSubmissionWindow() *SubmissionWindow {
	return &SubmissionWindow{}
}

// Evaluate computes both window states and the target calendar date for a
// submission at the given instant. Debug mode always simulates the morning
// window so operators can test without waiting for a real cutover.
func (w *SubmissionWindow) Evaluate(now time.Time, debug bool) WindowDecision {
	local := now.In(SchoolZone)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, SchoolZone)

	if debug {
		return WindowDecision{MorningOpen: true, AfternoonOpen: false, TargetDate: today}
	}

	decision := WindowDecision{
		MorningOpen:   local.Hour() < 7 || (local.Hour() == 7 && local.Minute() < 15),
		AfternoonOpen: local.Hour() >= 12,
		TargetDate:    today,
	}
	if decision.AfternoonOpen {
		decision.TargetDate = today.AddDate(0, 0, 1)
	}
	return decision
}

// Permit evaluates the gate and rejects with OUTSIDE_SUBMISSION_WINDOW when
// neither window is open.
func (w *SubmissionWindow) Permit(now time.Time, debug bool) (WindowDecision, error) {
	decision := w.Evaluate(now, debug)
	if !decision.Open() {
		return decision, appErrors.ErrOutsideWindow
	}
	return decision, nil
}
