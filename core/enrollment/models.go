package enrollment

import (
	"time"

	"github.com/trezcool/academia/core"
)

type Course struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Credits      int    `json:"credits"`
	InstructorID int    `json:"instructor_id"`
	IsActive     bool   `json:"is_active"`
}

type Enrollment struct {
	ID             int          `json:"id"`
	StudentID      int          `json:"student_id"`
	CourseID       int          `json:"course_id"`
	StartDate      time.Time    `json:"start_date"`
	EndDate        time.Time    `json:"end_date"`
	Grade          *LetterGrade `json:"grade"`
	GradeUpdatedAt *time.Time   `json:"grade_updated_at"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name         string `json:"name" validate:"required,notblank,max=200"`
	Credits      int    `json:"credits" validate:"gte=0,lte=30"`
	InstructorID int    `json:"instructor_id" validate:"gt=0"`
}

func (nc *NewCourse) Validate(v *core.Validator) error {
	nc.Name = core.CleanString(nc.Name)
	return v.Struct(nc)
}

type newEnrollment struct {
	StudentID int       `json:"student_id" validate:"gt=0"`
	CourseID  int       `json:"course_id" validate:"gt=0"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
}

type gradeUpdate struct {
	Grade *LetterGrade `json:"grade" validate:"omitempty,lettergrade"`
}

type CourseFilter struct {
	InstructorID int  `query:"instructor_id"`
	ActiveOnly   bool `query:"active"`
}

type EnrollmentFilter struct {
	StudentID int
	CourseID  int
}
