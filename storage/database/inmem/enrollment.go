package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/academia/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateCourse(ctx context.Context, c enrollment.Course) (enrollment.Course, error) {
	defer repo.db.lock(ctx)()

	c.ID = repo.db.nextID("courses")
	repo.db.courses[c.ID] = c
	return c, nil
}

func (repo *enrollmentRepository) GetCourse(ctx context.Context, id int) (enrollment.Course, error) {
	defer repo.db.lock(ctx)()

	if c, ok := repo.db.courses[id]; ok {
		return c, nil
	}
	return enrollment.Course{}, enrollment.ErrCourseNotFound
}

// LockCourse only reads: a transaction already holds the whole DB.
func (repo *enrollmentRepository) LockCourse(ctx context.Context, id int) (enrollment.Course, error) {
	return repo.GetCourse(ctx, id)
}

func (repo *enrollmentRepository) QueryCourses(ctx context.Context, filter enrollment.CourseFilter) ([]enrollment.Course, error) {
	defer repo.db.lock(ctx)()

	courses := make([]enrollment.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter.InstructorID > 0 && c.InstructorID != filter.InstructorID {
			continue
		}
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	defer repo.db.lock(ctx)()

	for _, other := range repo.db.enrollments {
		if other.StudentID == enr.StudentID && other.CourseID == enr.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrDuplicateEnrollment
		}
	}
	if _, ok := repo.db.courses[enr.CourseID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrCourseNotFound
	}
	if _, ok := repo.db.identities[enr.StudentID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrStudentNotFound
	}
	enr.ID = repo.db.nextID("enrollments")
	repo.db.enrollments[enr.ID] = enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, id int) (enrollment.Enrollment, error) {
	defer repo.db.lock(ctx)()

	if enr, ok := repo.db.enrollments[id]; ok {
		return enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
}

func (repo *enrollmentRepository) FindEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error) {
	defer repo.db.lock(ctx)()

	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID && enr.CourseID == courseID {
			return enr, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.EnrollmentFilter) ([]enrollment.Enrollment, error) {
	defer repo.db.lock(ctx)()

	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if filter.StudentID > 0 && enr.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID > 0 && enr.CourseID != filter.CourseID {
			continue
		}
		enrs = append(enrs, enr)
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].ID < enrs[j].ID })
	return enrs, nil
}

func (repo *enrollmentRepository) UpdateGrade(ctx context.Context, id int, grade *enrollment.LetterGrade, at time.Time) (enrollment.Enrollment, error) {
	defer repo.db.lock(ctx)()

	enr, ok := repo.db.enrollments[id]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
	}
	enr.Grade = nil
	if grade != nil {
		g := *grade
		enr.Grade = &g
	}
	enr.GradeUpdatedAt = &at
	repo.db.enrollments[id] = enr
	return enr, nil
}
