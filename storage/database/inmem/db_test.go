package inmemdb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
)

func TestDB_WithinTx(t *testing.T) {
	ctx := context.Background()
	errAbort := errors.New("abort")

	tests := []struct {
		name      string
		fn        func(ctx context.Context, repo enrollment.Repository) error
		wantErr   error
		wantCount int
	}{
		{
			name: "commit",
			fn: func(ctx context.Context, repo enrollment.Repository) error {
				_, err := repo.CreateCourse(ctx, enrollment.Course{Name: "CS101"})
				return err
			},
			wantCount: 1,
		},
		{
			name: "rollback",
			fn: func(ctx context.Context, repo enrollment.Repository) error {
				if _, err := repo.CreateCourse(ctx, enrollment.Course{Name: "CS101"}); err != nil {
					return err
				}
				return errAbort
			},
			wantErr: errAbort,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := Open()
			repo := NewEnrollmentRepository(db)
			err := db.WithinTx(ctx, func(ctx context.Context) error { return tt.fn(ctx, repo) })
			assert.ErrorIs(t, err, tt.wantErr)

			courses, err := repo.QueryCourses(ctx, enrollment.CourseFilter{})
			require.NoError(t, err)
			assert.Len(t, courses, tt.wantCount)
		})
	}

	t.Run("nested joins outer", func(t *testing.T) {
		db := Open()
		repo := NewEnrollmentRepository(db)
		err := db.WithinTx(ctx, func(ctx context.Context) error {
			_ = db.WithinTx(ctx, func(ctx context.Context) error {
				_, err := repo.CreateCourse(ctx, enrollment.Course{Name: "CS101"})
				return err
			})
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)
		courses, err := repo.QueryCourses(ctx, enrollment.CourseFilter{})
		require.NoError(t, err)
		assert.Empty(t, courses)
	})

	t.Run("panic", func(t *testing.T) {
		db := Open()
		repo := NewEnrollmentRepository(db)
		assert.Panics(t, func() {
			_ = db.WithinTx(ctx, func(ctx context.Context) error {
				_, _ = repo.CreateCourse(ctx, enrollment.Course{Name: "CS101"})
				panic("boom")
			})
		})
		courses, err := repo.QueryCourses(ctx, enrollment.CourseFilter{})
		require.NoError(t, err)
		assert.Empty(t, courses)
	})
}

func TestRepositories_constraints(t *testing.T) {
	ctx := context.Background()
	db := Open()
	idts := NewIdentityRepository(db)
	enrs := NewEnrollmentRepository(db)
	cw := NewCourseworkRepository(db)

	stud, err := idts.CreateIdentity(ctx, identity.Identity{Name: "Amy", Email: "amy@test.cd", Role: identity.RoleStudent})
	require.NoError(t, err)
	_, err = idts.CreateIdentity(ctx, identity.Identity{Name: "Amy 2", Email: "amy@test.cd", Role: identity.RoleInstructor})
	assert.ErrorIs(t, err, identity.ErrEmailExists)

	c1, err := enrs.CreateCourse(ctx, enrollment.Course{Name: "CS101"})
	require.NoError(t, err)
	c2, err := enrs.CreateCourse(ctx, enrollment.Course{Name: "CS102"})
	require.NoError(t, err)

	enr, err := enrs.CreateEnrollment(ctx, enrollment.Enrollment{StudentID: stud.ID, CourseID: c1.ID})
	require.NoError(t, err)
	_, err = enrs.CreateEnrollment(ctx, enrollment.Enrollment{StudentID: stud.ID, CourseID: c1.ID})
	assert.ErrorIs(t, err, enrollment.ErrDuplicateEnrollment)
	_, err = enrs.CreateEnrollment(ctx, enrollment.Enrollment{StudentID: 999, CourseID: c1.ID})
	assert.ErrorIs(t, err, enrollment.ErrStudentNotFound)

	asg1, err := cw.CreateAssignment(ctx, coursework.Assignment{CourseID: c1.ID, Title: "HW1"})
	require.NoError(t, err)
	asg2, err := cw.CreateAssignment(ctx, coursework.Assignment{CourseID: c2.ID, Title: "HW1"})
	require.NoError(t, err)

	_, err = cw.CreateDistribution(ctx, coursework.Distribution{AssignmentID: asg1.ID, EnrollmentID: enr.ID})
	require.NoError(t, err)
	_, err = cw.CreateDistribution(ctx, coursework.Distribution{AssignmentID: asg1.ID, EnrollmentID: enr.ID})
	assert.ErrorIs(t, err, coursework.ErrDuplicateDistrib)
	_, err = cw.CreateDistribution(ctx, coursework.Distribution{AssignmentID: asg2.ID, EnrollmentID: enr.ID})
	assert.ErrorIs(t, err, errCourseMismatch)
}
