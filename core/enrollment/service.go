package enrollment

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/identity"
)

var (
	// errors
	ErrCourseNotFound      = core.NewNotFoundError("course not found")
	ErrEnrollmentNotFound  = core.NewNotFoundError("enrollment not found")
	ErrStudentNotFound     = core.NewNotFoundError("student not found")
	ErrInstructorNotFound  = core.NewNotFoundError("instructor not found")
	ErrDuplicateEnrollment = core.NewConflictError("student is already enrolled in this course")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		// LockCourse reads the course and holds its row lock until the surrounding transaction ends.
		// Enrolling and fanning out assignments both take it, which serializes them per course.
		LockCourse(ctx context.Context, id int) (Course, error)
		QueryCourses(ctx context.Context, filter CourseFilter) ([]Course, error)

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, id int) (Enrollment, error)
		FindEnrollment(ctx context.Context, studentID, courseID int) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter) ([]Enrollment, error)
		UpdateGrade(ctx context.Context, id int, grade *LetterGrade, at time.Time) (Enrollment, error)
	}

	// IdentityGetter is the part of identity.Repository the ledger needs.
	IdentityGetter interface {
		GetIdentity(ctx context.Context, id int) (identity.Identity, error)
	}

	Service struct {
		repo       Repository
		identities IdentityGetter
		tx         core.TxManager
		validator  *core.Validator
	}
)

func NewService(repo Repository, identities IdentityGetter, tx core.TxManager, v *core.Validator) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(identities, "identities"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(v, "validator"),
	).CheckAndPanic()

	return &Service{
		repo:       repo,
		identities: identities,
		tx:         tx,
		validator:  v,
	}
}

func (svc *Service) AddCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validator); err != nil {
		return Course{}, err
	}
	if _, err := svc.getWithRole(ctx, nc.InstructorID, identity.RoleInstructor, ErrInstructorNotFound); err != nil {
		return Course{}, err
	}
	return svc.repo.CreateCourse(ctx, Course{
		Name:         nc.Name,
		Credits:      nc.Credits,
		InstructorID: nc.InstructorID,
		IsActive:     true,
	})
}

func (svc *Service) GetCourse(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) ListCourses(ctx context.Context, filter CourseFilter) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter)
}

// Enroll creates the enrollment of a student in a course.
// A second enrollment for the same (student, course) pair fails with ErrDuplicateEnrollment.
func (svc *Service) Enroll(ctx context.Context, studentID, courseID int, start, end time.Time) (Enrollment, error) {
	ne := newEnrollment{
		StudentID: studentID,
		CourseID:  courseID,
		StartDate: core.Date(start),
		EndDate:   core.Date(end),
	}
	if err := svc.validator.Struct(ne); err != nil {
		return Enrollment{}, err
	}

	var enr Enrollment
	err := svc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.LockCourse(ctx, ne.CourseID); err != nil {
			return err
		}
		if _, err := svc.getWithRole(ctx, ne.StudentID, identity.RoleStudent, ErrStudentNotFound); err != nil {
			return err
		}
		if _, err := svc.repo.FindEnrollment(ctx, ne.StudentID, ne.CourseID); err == nil {
			return ErrDuplicateEnrollment
		} else if !errors.Is(err, ErrEnrollmentNotFound) {
			return errors.Wrap(err, "checking enrollment uniqueness")
		}

		var err error
		enr, err = svc.repo.CreateEnrollment(ctx, Enrollment{
			StudentID: ne.StudentID,
			CourseID:  ne.CourseID,
			StartDate: ne.StartDate,
			EndDate:   ne.EndDate,
		})
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

// RecordGrade sets (or, with a nil grade, clears) the letter grade of an enrollment.
func (svc *Service) RecordGrade(ctx context.Context, enrollmentID int, grade *LetterGrade) (Enrollment, error) {
	if err := svc.validator.Struct(gradeUpdate{Grade: grade}); err != nil {
		return Enrollment{}, err
	}
	return svc.repo.UpdateGrade(ctx, enrollmentID, grade, core.Now())
}

func (svc *Service) GetEnrollment(ctx context.Context, id int) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, id)
}

func (svc *Service) StudentEnrollments(ctx context.Context, studentID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, EnrollmentFilter{StudentID: studentID})
}

func (svc *Service) CourseEnrollments(ctx context.Context, courseID int) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, EnrollmentFilter{CourseID: courseID})
}

func (svc *Service) getWithRole(ctx context.Context, id int, role identity.Role, notFound error) (identity.Identity, error) {
	idt, err := svc.identities.GetIdentity(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.Identity{}, notFound
		}
		return identity.Identity{}, errors.Wrapf(err, "finding %s", role)
	}
	if idt.Role != role {
		return identity.Identity{}, notFound
	}
	return idt, nil
}
