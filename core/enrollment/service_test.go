package enrollment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
	testutil "github.com/trezcool/academia/tests"
)

var (
	start = testutil.Date(2024, time.January, 8)
	end   = testutil.Date(2024, time.May, 3)
)

func TestService_AddCourse(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp()
	prof := testutil.CreateIdentity(t, app.IdentityRepo, "Prof", "prof@test.cd", identity.RoleInstructor)
	stud := testutil.CreateIdentity(t, app.IdentityRepo, "Stud", "stud@test.cd", identity.RoleStudent)

	tests := []struct {
		name      string
		nc        enrollment.NewCourse
		wantErr   error
		wantValid bool
	}{
		{name: "valid", nc: enrollment.NewCourse{Name: " CS101 ", Credits: 3, InstructorID: prof.ID}},
		{name: "blank name", nc: enrollment.NewCourse{Name: "  ", Credits: 3, InstructorID: prof.ID}, wantValid: true},
		{name: "too many credits", nc: enrollment.NewCourse{Name: "CS102", Credits: 31, InstructorID: prof.ID}, wantValid: true},
		{name: "no instructor", nc: enrollment.NewCourse{Name: "CS103", Credits: 3}, wantValid: true},
		{
			name:    "unknown instructor",
			nc:      enrollment.NewCourse{Name: "CS104", Credits: 3, InstructorID: 999},
			wantErr: enrollment.ErrInstructorNotFound,
		},
		{
			name:    "student as instructor",
			nc:      enrollment.NewCourse{Name: "CS105", Credits: 3, InstructorID: stud.ID},
			wantErr: enrollment.ErrInstructorNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := app.Ledger.AddCourse(ctx, tt.nc)
			switch {
			case tt.wantValid:
				assert.True(t, core.IsValidation(err), "want validation error, got %v", err)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, core.IsNotFound(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, "CS101", c.Name)
				assert.True(t, c.IsActive)
				got, err := app.Ledger.GetCourse(ctx, c.ID)
				require.NoError(t, err)
				assert.Equal(t, c, got)
			}
		})
	}
}

func TestService_Enroll(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp()
	prof := testutil.CreateIdentity(t, app.IdentityRepo, "Prof", "prof@test.cd", identity.RoleInstructor)
	stud := testutil.CreateIdentity(t, app.IdentityRepo, "Stud", "stud@test.cd", identity.RoleStudent)
	course := testutil.CreateCourse(t, app.EnrollmentRepo, "CS101", 3, prof.ID)

	enr, err := app.Ledger.Enroll(ctx, stud.ID, course.ID, start.Add(5*time.Hour), end)
	require.NoError(t, err)
	assert.Equal(t, start, enr.StartDate)
	assert.Nil(t, enr.Grade)

	tests := []struct {
		name      string
		studentID int
		courseID  int
		start     time.Time
		end       time.Time
		wantErr   error
		wantValid bool
	}{
		{name: "duplicate", studentID: stud.ID, courseID: course.ID, start: start, end: end, wantErr: enrollment.ErrDuplicateEnrollment},
		{name: "unknown course", studentID: stud.ID, courseID: 999, start: start, end: end, wantErr: enrollment.ErrCourseNotFound},
		{name: "unknown student", studentID: 999, courseID: course.ID, start: start, end: end, wantErr: enrollment.ErrStudentNotFound},
		{name: "instructor as student", studentID: prof.ID, courseID: course.ID, start: start, end: end, wantErr: enrollment.ErrStudentNotFound},
		{name: "end before start", studentID: stud.ID, courseID: course.ID, start: end, end: start, wantValid: true},
		{name: "missing dates", studentID: stud.ID, courseID: course.ID, wantValid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.Ledger.Enroll(ctx, tt.studentID, tt.courseID, tt.start, tt.end)
			if tt.wantValid {
				assert.True(t, core.IsValidation(err), "want validation error, got %v", err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	enrs, err := app.Ledger.CourseEnrollments(ctx, course.ID)
	require.NoError(t, err)
	assert.Len(t, enrs, 1)
	assert.True(t, core.IsConflict(enrollment.ErrDuplicateEnrollment))
}

func TestService_Enroll_concurrent(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp()
	prof := testutil.CreateIdentity(t, app.IdentityRepo, "Prof", "prof@test.cd", identity.RoleInstructor)
	stud := testutil.CreateIdentity(t, app.IdentityRepo, "Stud", "stud@test.cd", identity.RoleStudent)
	course := testutil.CreateCourse(t, app.EnrollmentRepo, "CS101", 3, prof.ID)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := app.Ledger.Enroll(ctx, stud.ID, course.ID, start, end)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if core.IsConflict(err) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

func TestService_RecordGrade(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp()
	prof := testutil.CreateIdentity(t, app.IdentityRepo, "Prof", "prof@test.cd", identity.RoleInstructor)
	stud := testutil.CreateIdentity(t, app.IdentityRepo, "Stud", "stud@test.cd", identity.RoleStudent)
	course := testutil.CreateCourse(t, app.EnrollmentRepo, "CS101", 3, prof.ID)
	enr := testutil.Enroll(t, app.EnrollmentRepo, stud.ID, course.ID)

	grade := enrollment.GradeBPlus
	got, err := app.Ledger.RecordGrade(ctx, enr.ID, &grade)
	require.NoError(t, err)
	require.NotNil(t, got.Grade)
	assert.Equal(t, enrollment.GradeBPlus, *got.Grade)
	assert.NotNil(t, got.GradeUpdatedAt)

	bad := enrollment.LetterGrade("E")
	_, err = app.Ledger.RecordGrade(ctx, enr.ID, &bad)
	assert.True(t, core.IsValidation(err))

	_, err = app.Ledger.RecordGrade(ctx, 999, &grade)
	assert.ErrorIs(t, err, enrollment.ErrEnrollmentNotFound)

	got, err = app.Ledger.RecordGrade(ctx, enr.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got.Grade)

	enrs, err := app.Ledger.StudentEnrollments(ctx, stud.ID)
	require.NoError(t, err)
	require.Len(t, enrs, 1)
	assert.Nil(t, enrs[0].Grade)
}

func TestNewService(t *testing.T) {
	app := testutil.NewApp()

	assert.Panics(t, func() { enrollment.NewService(nil, app.IdentityRepo, app.DB, app.Validator) })
	assert.Panics(t, func() { enrollment.NewService(app.EnrollmentRepo, app.IdentityRepo, nil, app.Validator) })
	assert.NotPanics(t, func() { enrollment.NewService(app.EnrollmentRepo, app.IdentityRepo, app.DB, app.Validator) })
}
