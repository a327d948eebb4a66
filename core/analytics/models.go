package analytics

import "github.com/trezcool/academia/core/enrollment"

// Rows read from the store. Aggregation happens in Go so every store shares it.
type (
	// CourseRow is one course with its enrollment count (zero included).
	CourseRow struct {
		CourseID        int
		CourseName      string
		Credits         int
		InstructorName  string
		EnrollmentCount int
	}

	// ScoreRow is one graded distribution.
	ScoreRow struct {
		CourseID       int
		CourseName     string
		InstructorName string
		EnrollmentID   int
		Score          float64
	}

	// MarkRow is one enrollment with its letter grade, nil when ungraded.
	MarkRow struct {
		CourseID    int
		CourseName  string
		StudentName string
		Grade       *enrollment.LetterGrade
	}
)

type (
	CourseEnrollment struct {
		CourseID        int    `json:"course_id"`
		CourseName      string `json:"course_name"`
		Credits         int    `json:"credits"`
		InstructorName  string `json:"instructor_name"`
		EnrollmentCount int    `json:"enrollment_count"`
	}

	EnrollmentStatistics struct {
		Courses                    []CourseEnrollment `json:"courses"`
		TotalEnrollments           int                `json:"total_enrollments"`
		TotalCourses               int                `json:"total_courses"`
		AverageEnrollmentPerCourse float64            `json:"average_enrollment_per_course"`
	}

	ScoreBucket struct {
		Letter       string  `json:"letter"`
		Count        int     `json:"count"`
		AverageScore float64 `json:"average_score"`
	}

	GradeDistribution struct {
		Buckets     []ScoreBucket `json:"buckets"` // A to F, empty buckets included
		TotalGraded int           `json:"total_graded"`
	}

	CourseAverage struct {
		CourseID           int     `json:"course_id"`
		CourseName         string  `json:"course_name"`
		InstructorName     string  `json:"instructor_name"`
		AverageScore       float64 `json:"average_score"`
		Letter             string  `json:"letter"`
		GradedStudentCount int     `json:"graded_student_count"`
	}

	CourseGPA struct {
		CourseID       int     `json:"course_id"`
		CourseName     string  `json:"course_name"`
		AverageGPA     float64 `json:"average_gpa"`
		GradedStudents int     `json:"graded_students"`
		TotalStudents  int     `json:"total_students"`
	}

	StudentCourseMark struct {
		StudentName string                  `json:"student_name"`
		CourseName  string                  `json:"course_name"`
		Grade       *enrollment.LetterGrade `json:"grade"`
	}
)
