package analytics

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
)

// Score bucket letters, best first.
var letters = []string{"A", "B", "C", "D", "F"}

// ScoreLetter buckets a numeric score: >=90 A, >=80 B, >=70 C, >=60 D, else F.
// It has nothing to do with enrollment letter grades and their GPA weights.
func ScoreLetter(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

type (
	Repository interface {
		CourseRows(ctx context.Context) ([]CourseRow, error)
		ScoreRows(ctx context.Context) ([]ScoreRow, error)
		MarkRows(ctx context.Context) ([]MarkRow, error)
	}

	// Aggregator derives read-only statistics. On a read failure every method returns an empty,
	// non-nil result along with the error so callers can render both.
	Aggregator struct {
		repo Repository
	}
)

func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

func (agg *Aggregator) EnrollmentStatistics(ctx context.Context) (EnrollmentStatistics, error) {
	stats := EnrollmentStatistics{Courses: []CourseEnrollment{}}
	rows, err := agg.repo.CourseRows(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "reading course enrollments")
	}

	for _, r := range rows {
		stats.Courses = append(stats.Courses, CourseEnrollment{
			CourseID:        r.CourseID,
			CourseName:      r.CourseName,
			Credits:         r.Credits,
			InstructorName:  r.InstructorName,
			EnrollmentCount: r.EnrollmentCount,
		})
		stats.TotalEnrollments += r.EnrollmentCount
	}
	stats.TotalCourses = len(rows)
	if stats.TotalCourses > 0 {
		stats.AverageEnrollmentPerCourse = float64(stats.TotalEnrollments) / float64(stats.TotalCourses)
	}
	sort.SliceStable(stats.Courses, func(i, j int) bool {
		return stats.Courses[i].EnrollmentCount > stats.Courses[j].EnrollmentCount
	})
	return stats, nil
}

func (agg *Aggregator) GradeDistribution(ctx context.Context) (GradeDistribution, error) {
	dist := GradeDistribution{Buckets: emptyBuckets()}
	rows, err := agg.repo.ScoreRows(ctx)
	if err != nil {
		return dist, errors.Wrap(err, "reading graded scores")
	}

	sums := make(map[string]float64, len(letters))
	counts := make(map[string]int, len(letters))
	for _, r := range rows {
		l := ScoreLetter(r.Score)
		sums[l] += r.Score
		counts[l]++
	}
	for i := range dist.Buckets {
		b := &dist.Buckets[i]
		b.Count = counts[b.Letter]
		if b.Count > 0 {
			b.AverageScore = core.Round2(sums[b.Letter] / float64(b.Count))
		}
	}
	dist.TotalGraded = len(rows)
	return dist, nil
}

// AverageGradesByCourse averages graded scores per course. Courses without any graded score are left out,
// and students without one are not counted.
func (agg *Aggregator) AverageGradesByCourse(ctx context.Context) ([]CourseAverage, error) {
	avgs := make([]CourseAverage, 0)
	rows, err := agg.repo.ScoreRows(ctx)
	if err != nil {
		return avgs, errors.Wrap(err, "reading graded scores")
	}

	type acc struct {
		avg         CourseAverage
		sum         float64
		n           int
		enrollments map[int]struct{}
	}
	byCourse := make(map[int]*acc)
	order := make([]int, 0)
	for _, r := range rows {
		a, ok := byCourse[r.CourseID]
		if !ok {
			a = &acc{
				avg: CourseAverage{
					CourseID:       r.CourseID,
					CourseName:     r.CourseName,
					InstructorName: r.InstructorName,
				},
				enrollments: make(map[int]struct{}),
			}
			byCourse[r.CourseID] = a
			order = append(order, r.CourseID)
		}
		a.sum += r.Score
		a.n++
		a.enrollments[r.EnrollmentID] = struct{}{}
	}

	for _, id := range order {
		a := byCourse[id]
		a.avg.AverageScore = core.Round2(a.sum / float64(a.n))
		a.avg.Letter = ScoreLetter(a.avg.AverageScore)
		a.avg.GradedStudentCount = len(a.enrollments)
		avgs = append(avgs, a.avg)
	}
	sort.SliceStable(avgs, func(i, j int) bool { return avgs[i].AverageScore > avgs[j].AverageScore })
	return avgs, nil
}

// CourseGPAs averages the GPA weights of the enrollment letter grades per course. Ungraded enrollments
// only count towards TotalStudents.
func (agg *Aggregator) CourseGPAs(ctx context.Context) ([]CourseGPA, error) {
	gpas := make([]CourseGPA, 0)
	rows, err := agg.repo.MarkRows(ctx)
	if err != nil {
		return gpas, errors.Wrap(err, "reading course marks")
	}

	type acc struct {
		gpa CourseGPA
		sum float64
	}
	byCourse := make(map[int]*acc)
	order := make([]int, 0)
	for _, r := range rows {
		a, ok := byCourse[r.CourseID]
		if !ok {
			a = &acc{gpa: CourseGPA{CourseID: r.CourseID, CourseName: r.CourseName}}
			byCourse[r.CourseID] = a
			order = append(order, r.CourseID)
		}
		a.gpa.TotalStudents++
		if r.Grade == nil {
			continue
		}
		if w, ok := enrollment.GPAWeight(*r.Grade); ok {
			a.sum += w
			a.gpa.GradedStudents++
		}
	}

	for _, id := range order {
		a := byCourse[id]
		if a.gpa.GradedStudents > 0 {
			a.gpa.AverageGPA = core.Round2(a.sum / float64(a.gpa.GradedStudents))
		}
		gpas = append(gpas, a.gpa)
	}
	return gpas, nil
}

func (agg *Aggregator) StudentCourseMarks(ctx context.Context) ([]StudentCourseMark, error) {
	marks := make([]StudentCourseMark, 0)
	rows, err := agg.repo.MarkRows(ctx)
	if err != nil {
		return marks, errors.Wrap(err, "reading course marks")
	}
	for _, r := range rows {
		marks = append(marks, StudentCourseMark{
			StudentName: r.StudentName,
			CourseName:  r.CourseName,
			Grade:       r.Grade,
		})
	}
	return marks, nil
}

func emptyBuckets() []ScoreBucket {
	buckets := make([]ScoreBucket, 0, len(letters))
	for _, l := range letters {
		buckets = append(buckets, ScoreBucket{Letter: l})
	}
	return buckets
}
