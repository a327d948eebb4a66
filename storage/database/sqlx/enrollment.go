package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
)

const (
	courseSelect     = "SELECT id, name, credits, instructor_id, is_active FROM courses"
	enrollmentSelect = "SELECT id, student_id, course_id, start_date, end_date, grade, grade_updated_at FROM enrollments"
)

type courseRow struct {
	ID           int    `db:"id"`
	Name         string `db:"name"`
	Credits      int    `db:"credits"`
	InstructorID int    `db:"instructor_id"`
	IsActive     bool   `db:"is_active"`
}

func (r courseRow) toCourse() enrollment.Course {
	return enrollment.Course(r)
}

type enrollmentRow struct {
	ID             int         `db:"id"`
	StudentID      int         `db:"student_id"`
	CourseID       int         `db:"course_id"`
	StartDate      time.Time   `db:"start_date"`
	EndDate        time.Time   `db:"end_date"`
	Grade          null.String `db:"grade"`
	GradeUpdatedAt null.Time   `db:"grade_updated_at"`
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	enr := enrollment.Enrollment{
		ID:        r.ID,
		StudentID: r.StudentID,
		CourseID:  r.CourseID,
		StartDate: core.Date(r.StartDate),
		EndDate:   core.Date(r.EndDate),
	}
	if r.Grade.Valid {
		g := enrollment.LetterGrade(r.Grade.String)
		enr.Grade = &g
	}
	if r.GradeUpdatedAt.Valid {
		at := r.GradeUpdatedAt.Time.UTC()
		enr.GradeUpdatedAt = &at
	}
	return enr
}

type enrollmentRepository struct {
	m *TxManager
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(m *TxManager) enrollment.Repository {
	return &enrollmentRepository{m: m}
}

func (repo *enrollmentRepository) CreateCourse(ctx context.Context, c enrollment.Course) (enrollment.Course, error) {
	err := repo.m.exec(ctx).QueryRowxContext(ctx,
		"INSERT INTO courses (name, credits, instructor_id, is_active) VALUES ($1, $2, $3, $4) RETURNING id",
		c.Name, c.Credits, c.InstructorID, c.IsActive,
	).Scan(&c.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return enrollment.Course{}, enrollment.ErrInstructorNotFound
		}
		return enrollment.Course{}, trapErr(errors.Wrap(err, "inserting course"))
	}
	return c, nil
}

func (repo *enrollmentRepository) GetCourse(ctx context.Context, id int) (enrollment.Course, error) {
	return repo.getCourse(ctx, courseSelect+" WHERE id = $1", id)
}

func (repo *enrollmentRepository) LockCourse(ctx context.Context, id int) (enrollment.Course, error) {
	return repo.getCourse(ctx, courseSelect+" WHERE id = $1 FOR UPDATE", id)
}

func (repo *enrollmentRepository) getCourse(ctx context.Context, q string, id int) (enrollment.Course, error) {
	var row courseRow
	if err := repo.m.exec(ctx).GetContext(ctx, &row, q, id); err != nil {
		return enrollment.Course{}, trapErr(err, enrollment.ErrCourseNotFound)
	}
	return row.toCourse(), nil
}

func (repo *enrollmentRepository) QueryCourses(ctx context.Context, filter enrollment.CourseFilter) ([]enrollment.Course, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.InstructorID > 0 {
		args = append(args, filter.InstructorID)
		conds = append(conds, fmt.Sprintf("instructor_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		conds = append(conds, "is_active")
	}
	q := courseSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY name, id"

	var rows []courseRow
	if err := repo.m.exec(ctx).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, trapErr(err)
	}
	courses := make([]enrollment.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	err := repo.m.exec(ctx).QueryRowxContext(ctx, `
		INSERT INTO enrollments (student_id, course_id, start_date, end_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		enr.StudentID, enr.CourseID, enr.StartDate, enr.EndDate,
	).Scan(&enr.ID)
	switch {
	case err == nil:
		return enr, nil
	case isUniqueViolation(err):
		return enrollment.Enrollment{}, enrollment.ErrDuplicateEnrollment
	case isForeignKeyViolation(err, "enrollments_student_id_fkey"):
		return enrollment.Enrollment{}, enrollment.ErrStudentNotFound
	case isForeignKeyViolation(err):
		return enrollment.Enrollment{}, enrollment.ErrCourseNotFound
	default:
		return enrollment.Enrollment{}, trapErr(errors.Wrap(err, "inserting enrollment"))
	}
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, id int) (enrollment.Enrollment, error) {
	var row enrollmentRow
	if err := repo.m.exec(ctx).GetContext(ctx, &row, enrollmentSelect+" WHERE id = $1", id); err != nil {
		return enrollment.Enrollment{}, trapErr(err, enrollment.ErrEnrollmentNotFound)
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) FindEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	var row enrollmentRow
	q := enrollmentSelect + " WHERE student_id = $1 AND course_id = $2"
	if err := repo.m.exec(ctx).GetContext(ctx, &row, q, studentID, courseID); err != nil {
		return enrollment.Enrollment{}, trapErr(err, enrollment.ErrEnrollmentNotFound)
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.EnrollmentFilter) ([]enrollment.Enrollment, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.StudentID > 0 {
		args = append(args, filter.StudentID)
		conds = append(conds, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.CourseID > 0 {
		args = append(args, filter.CourseID)
		conds = append(conds, fmt.Sprintf("course_id = $%d", len(args)))
	}
	q := enrollmentSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY id"

	var rows []enrollmentRow
	if err := repo.m.exec(ctx).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, trapErr(err)
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.toEnrollment())
	}
	return enrs, nil
}

func (repo *enrollmentRepository) UpdateGrade(
	ctx context.Context,
	id int,
	grade *enrollment.LetterGrade,
	at time.Time,
) (enrollment.Enrollment, error) {
	var g null.String
	if grade != nil {
		g = null.StringFrom(string(*grade))
	}
	var row enrollmentRow
	err := repo.m.exec(ctx).GetContext(ctx, &row, `
		UPDATE enrollments SET grade = $1, grade_updated_at = $2 WHERE id = $3
		RETURNING id, student_id, course_id, start_date, end_date, grade, grade_updated_at`,
		g, at, id,
	)
	if err != nil {
		return enrollment.Enrollment{}, trapErr(err, enrollment.ErrEnrollmentNotFound)
	}
	return row.toEnrollment(), nil
}
