package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/analytics"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
	testutil "github.com/trezcool/academia/tests"
)

var errDown = errors.New("store down")

type downRepo struct{}

func (downRepo) CourseRows(context.Context) ([]analytics.CourseRow, error) { return nil, errDown }
func (downRepo) ScoreRows(context.Context) ([]analytics.ScoreRow, error)   { return nil, errDown }
func (downRepo) MarkRows(context.Context) ([]analytics.MarkRow, error)     { return nil, errDown }

func TestScoreLetter(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "A"}, {90, "A"}, {89.99, "B"}, {80, "B"}, {79.5, "C"}, {70, "C"}, {60, "D"}, {59.99, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, analytics.ScoreLetter(tt.score), "score %v", tt.score)
	}
}

func TestAggregator_emptyStore(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp()

	stats, err := app.Analytics.EnrollmentStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.AverageEnrollmentPerCourse)
	assert.NotNil(t, stats.Courses)

	dist, err := app.Analytics.GradeDistribution(ctx)
	require.NoError(t, err)
	require.Len(t, dist.Buckets, 5)
	assert.Equal(t, 0, dist.TotalGraded)

	avgs, err := app.Analytics.AverageGradesByCourse(ctx)
	require.NoError(t, err)
	assert.NotNil(t, avgs)
	assert.Empty(t, avgs)
}

func TestAggregator_storeFailure(t *testing.T) {
	ctx := context.Background()
	agg := analytics.NewAggregator(downRepo{})

	stats, err := agg.EnrollmentStatistics(ctx)
	assert.ErrorIs(t, err, errDown)
	assert.NotNil(t, stats.Courses)
	assert.Empty(t, stats.Courses)

	dist, err := agg.GradeDistribution(ctx)
	assert.ErrorIs(t, err, errDown)
	assert.Len(t, dist.Buckets, 5)

	avgs, err := agg.AverageGradesByCourse(ctx)
	assert.ErrorIs(t, err, errDown)
	assert.NotNil(t, avgs)

	gpas, err := agg.CourseGPAs(ctx)
	assert.ErrorIs(t, err, errDown)
	assert.NotNil(t, gpas)

	marks, err := agg.StudentCourseMarks(ctx)
	assert.ErrorIs(t, err, errDown)
	assert.NotNil(t, marks)
}

func TestAggregator_scenario(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp()
	prof := testutil.CreateIdentity(t, app.IdentityRepo, "Prof X", "prof@test.cd", identity.RoleInstructor)
	cs101 := testutil.CreateCourse(t, app.EnrollmentRepo, "CS101", 3, prof.ID)
	math := testutil.CreateCourse(t, app.EnrollmentRepo, "MATH200", 4, prof.ID)
	testutil.CreateCourse(t, app.EnrollmentRepo, "ART100", 2, prof.ID)

	var students []identity.Identity
	var enrs []enrollment.Enrollment
	for _, name := range []string{"Amy", "Ben", "Cleo"} {
		s := testutil.CreateIdentity(t, app.IdentityRepo, name, name+"@test.cd", identity.RoleStudent)
		students = append(students, s)
		enrs = append(enrs, testutil.Enroll(t, app.EnrollmentRepo, s.ID, cs101.ID))
	}
	testutil.Enroll(t, app.EnrollmentRepo, students[0].ID, math.ID)

	// CS101: one graded submission scoring 92
	asg, dists, err := app.Engine.CreateAssignment(ctx, coursework.NewAssignment{
		CourseID: cs101.ID,
		Title:    "Homework 1",
		DueDate:  testutil.Date(2024, time.February, 1),
		Publish:  true,
	})
	require.NoError(t, err)
	require.Len(t, dists, 3)
	_, err = app.Engine.SubmitAssignment(ctx, asg.ID, students[0].ID, "answer")
	require.NoError(t, err)
	_, err = app.Engine.GradeDistribution(ctx, dists[0].ID, coursework.Grade{Score: 92})
	require.NoError(t, err)

	// MATH200: two graded submissions by the same student
	for i, score := range []float64{75, 64} {
		asg, dists, err := app.Engine.CreateAssignment(ctx, coursework.NewAssignment{
			CourseID: math.ID,
			Title:    "Quiz " + string(rune('1'+i)),
			DueDate:  testutil.Date(2024, time.March, 1),
			Publish:  true,
		})
		require.NoError(t, err)
		_, err = app.Engine.SubmitAssignment(ctx, asg.ID, students[0].ID, "answer")
		require.NoError(t, err)
		_, err = app.Engine.GradeDistribution(ctx, dists[0].ID, coursework.Grade{Score: score})
		require.NoError(t, err)
	}

	// letter grades: A and B+ in CS101, Cleo stays ungraded
	a, bPlus := enrollment.GradeA, enrollment.GradeBPlus
	_, err = app.Ledger.RecordGrade(ctx, enrs[0].ID, &a)
	require.NoError(t, err)
	_, err = app.Ledger.RecordGrade(ctx, enrs[1].ID, &bPlus)
	require.NoError(t, err)

	t.Run("EnrollmentStatistics", func(t *testing.T) {
		stats, err := app.Analytics.EnrollmentStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, stats.TotalEnrollments)
		assert.Equal(t, 3, stats.TotalCourses)
		assert.InDelta(t, 4.0/3.0, stats.AverageEnrollmentPerCourse, 1e-9)
		require.Len(t, stats.Courses, 3)
		assert.Equal(t, "CS101", stats.Courses[0].CourseName)
		assert.Equal(t, 3, stats.Courses[0].EnrollmentCount)
		assert.Equal(t, "Prof X", stats.Courses[0].InstructorName)
		assert.Equal(t, "ART100", stats.Courses[2].CourseName)
		assert.Equal(t, 0, stats.Courses[2].EnrollmentCount)
	})

	t.Run("GradeDistribution", func(t *testing.T) {
		dist, err := app.Analytics.GradeDistribution(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, dist.TotalGraded)
		assert.Equal(t, []analytics.ScoreBucket{
			{Letter: "A", Count: 1, AverageScore: 92},
			{Letter: "B", Count: 0},
			{Letter: "C", Count: 1, AverageScore: 75},
			{Letter: "D", Count: 1, AverageScore: 64},
			{Letter: "F", Count: 0},
		}, dist.Buckets)
	})

	t.Run("AverageGradesByCourse", func(t *testing.T) {
		avgs, err := app.Analytics.AverageGradesByCourse(ctx)
		require.NoError(t, err)
		require.Len(t, avgs, 2)

		assert.Equal(t, analytics.CourseAverage{
			CourseID:           cs101.ID,
			CourseName:         "CS101",
			InstructorName:     "Prof X",
			AverageScore:       92.00,
			Letter:             "A",
			GradedStudentCount: 1,
		}, avgs[0])
		assert.Equal(t, math.ID, avgs[1].CourseID)
		assert.Equal(t, 69.5, avgs[1].AverageScore)
		assert.Equal(t, "D", avgs[1].Letter)
		assert.Equal(t, 1, avgs[1].GradedStudentCount)
	})

	t.Run("CourseGPAs", func(t *testing.T) {
		gpas, err := app.Analytics.CourseGPAs(ctx)
		require.NoError(t, err)
		require.Len(t, gpas, 2)
		assert.Equal(t, analytics.CourseGPA{
			CourseID:       cs101.ID,
			CourseName:     "CS101",
			AverageGPA:     3.65,
			GradedStudents: 2,
			TotalStudents:  3,
		}, gpas[0])
		assert.Equal(t, analytics.CourseGPA{
			CourseID:      math.ID,
			CourseName:    "MATH200",
			TotalStudents: 1,
		}, gpas[1])
	})

	t.Run("StudentCourseMarks", func(t *testing.T) {
		marks, err := app.Analytics.StudentCourseMarks(ctx)
		require.NoError(t, err)
		require.Len(t, marks, 4)
		assert.Equal(t, "Amy", marks[0].StudentName)
		assert.Equal(t, "CS101", marks[0].CourseName)
		require.NotNil(t, marks[0].Grade)
		assert.Equal(t, enrollment.GradeA, *marks[0].Grade)
		assert.Equal(t, "Cleo", marks[2].StudentName)
		assert.Nil(t, marks[2].Grade)
		assert.Equal(t, "MATH200", marks[3].CourseName)
	})
}
