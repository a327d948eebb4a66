package coursework

import (
	"encoding/json"
	"time"

	"github.com/trezcool/academia/core"
)

// State of a Distribution. Transitions only move forward: Pending -> Submitted -> Graded.
type State string

const (
	StatePending   State = "pending"
	StateSubmitted State = "submitted"
	StateGraded    State = "graded"
)

type Assignment struct {
	ID          int       `json:"id"`
	CourseID    int       `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Distribution is the per-student work item of an assignment.
type Distribution struct {
	ID             int        `json:"id"`
	AssignmentID   int        `json:"assignment_id"`
	EnrollmentID   int        `json:"enrollment_id"`
	SubmissionText *string    `json:"submission_text"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	IsGraded       bool       `json:"is_graded"`
	Score          *float64   `json:"score"`
	Feedback       *string    `json:"feedback"`
	GradedAt       *time.Time `json:"graded_at"`
}

func (d Distribution) State() State {
	switch {
	case d.IsGraded:
		return StateGraded
	case d.SubmittedAt != nil:
		return StateSubmitted
	default:
		return StatePending
	}
}

func (d Distribution) MarshalJSON() ([]byte, error) {
	type alias Distribution
	return json.Marshal(struct {
		alias
		State State `json:"state"`
	}{alias(d), d.State()})
}

// NewAssignment contains information needed to create an Assignment and fan it out.
type NewAssignment struct {
	CourseID    int       `json:"course_id" validate:"gt=0"`
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	Publish     bool      `json:"publish"`
}

func (na *NewAssignment) Validate(v *core.Validator) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.DueDate = core.Date(na.DueDate)
	return v.Struct(na)
}

type submission struct {
	AssignmentID int    `json:"assignment_id" validate:"gt=0"`
	StudentID    int    `json:"student_id" validate:"gt=0"`
	Text         string `json:"text" validate:"required,notblank"`
}

// Grade carries the score and feedback of a submitted distribution. Scores range from 0 to 100.
type Grade struct {
	Score    float64 `json:"score" validate:"gte=0,lte=100"`
	Feedback string  `json:"feedback" validate:"max=5000"`
}
