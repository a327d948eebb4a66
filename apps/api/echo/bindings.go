package echoapi

import (
	"bytes"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
)

const dateLayout = "2006-01-02"

// Date is a calendar date carried as "YYYY-MM-DD" in JSON.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.Errorf("invalid date %s, expected YYYY-MM-DD", b)
	}
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return errors.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.Format(dateLayout))), nil
}

// paramID reads the integer path parameter `name`. Anything else is a 404.
func paramID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// Requests & Responses

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string        `json:"token"`
		Role  identity.Role `json:"role,omitempty"`
	}

	PasswordChangeRequest struct {
		OldPassword string `json:"old_password" validate:"required"`
		NewPassword string `json:"new_password" validate:"required"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	NewIdentityRequest struct {
		identity.NewIdentity
		DateOfBirth Date `json:"date_of_birth"`
	}

	ProfileUpdateRequest struct {
		identity.ProfileUpdate
		DateOfBirth Date `json:"date_of_birth"`
	}

	EnrollRequest struct {
		StudentID int  `json:"student_id"`
		StartDate Date `json:"start_date"`
		EndDate   Date `json:"end_date"`
	}

	GradeRequest struct {
		Grade *enrollment.LetterGrade `json:"grade"`
	}

	NewAssignmentRequest struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		DueDate     Date   `json:"due_date"`
		Publish     bool   `json:"publish"`
	}

	NewAssignmentResponse struct {
		Assignment    coursework.Assignment     `json:"assignment"`
		Distributions []coursework.Distribution `json:"distributions"`
	}

	SubmissionRequest struct {
		Text string `json:"text"`
	}
)

func (r NewIdentityRequest) toNewIdentity() identity.NewIdentity {
	ni := r.NewIdentity
	if !r.DateOfBirth.IsZero() {
		dob := r.DateOfBirth.Time
		ni.DateOfBirth = &dob
	}
	return ni
}

func (r ProfileUpdateRequest) toProfileUpdate() identity.ProfileUpdate {
	pu := r.ProfileUpdate
	if !r.DateOfBirth.IsZero() {
		dob := r.DateOfBirth.Time
		pu.DateOfBirth = &dob
	}
	return pu
}
