package sqlxrepos

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/analytics"
	"github.com/trezcool/academia/core/enrollment"
)

type analyticsRepository struct {
	m *TxManager
}

var _ analytics.Repository = (*analyticsRepository)(nil) // interface compliance check

func NewAnalyticsRepository(m *TxManager) analytics.Repository {
	return &analyticsRepository{m: m}
}

func (repo *analyticsRepository) CourseRows(ctx context.Context) ([]analytics.CourseRow, error) {
	var rows []struct {
		CourseID        int    `db:"course_id"`
		CourseName      string `db:"course_name"`
		Credits         int    `db:"credits"`
		InstructorName  string `db:"instructor_name"`
		EnrollmentCount int    `db:"enrollment_count"`
	}
	err := repo.m.exec(ctx).SelectContext(ctx, &rows, `
		SELECT c.id AS course_id, c.name AS course_name, c.credits, i.name AS instructor_name,
		       COUNT(e.id) AS enrollment_count
		FROM courses c
		JOIN identities i ON i.id = c.instructor_id
		LEFT JOIN enrollments e ON e.course_id = c.id
		GROUP BY c.id, c.name, c.credits, i.name
		ORDER BY c.id`)
	if err != nil {
		return nil, trapErr(err)
	}
	res := make([]analytics.CourseRow, 0, len(rows))
	for _, r := range rows {
		res = append(res, analytics.CourseRow(r))
	}
	return res, nil
}

func (repo *analyticsRepository) ScoreRows(ctx context.Context) ([]analytics.ScoreRow, error) {
	var rows []struct {
		CourseID       int     `db:"course_id"`
		CourseName     string  `db:"course_name"`
		InstructorName string  `db:"instructor_name"`
		EnrollmentID   int     `db:"enrollment_id"`
		Score          float64 `db:"score"`
	}
	err := repo.m.exec(ctx).SelectContext(ctx, &rows, `
		SELECT c.id AS course_id, c.name AS course_name, i.name AS instructor_name, d.enrollment_id, d.score
		FROM distributions d
		JOIN courses c ON c.id = d.course_id
		JOIN identities i ON i.id = c.instructor_id
		WHERE d.is_graded AND d.score IS NOT NULL
		ORDER BY d.id`)
	if err != nil {
		return nil, trapErr(err)
	}
	res := make([]analytics.ScoreRow, 0, len(rows))
	for _, r := range rows {
		res = append(res, analytics.ScoreRow(r))
	}
	return res, nil
}

func (repo *analyticsRepository) MarkRows(ctx context.Context) ([]analytics.MarkRow, error) {
	var rows []struct {
		CourseID    int         `db:"course_id"`
		CourseName  string      `db:"course_name"`
		StudentName string      `db:"student_name"`
		Grade       null.String `db:"grade"`
	}
	err := repo.m.exec(ctx).SelectContext(ctx, &rows, `
		SELECT c.id AS course_id, c.name AS course_name, s.name AS student_name, e.grade
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		JOIN identities s ON s.id = e.student_id
		ORDER BY c.name, s.name`)
	if err != nil {
		return nil, trapErr(err)
	}
	res := make([]analytics.MarkRow, 0, len(rows))
	for _, r := range rows {
		row := analytics.MarkRow{CourseID: r.CourseID, CourseName: r.CourseName, StudentName: r.StudentName}
		if r.Grade.Valid {
			g := enrollment.LetterGrade(r.Grade.String)
			row.Grade = &g
		}
		res = append(res, row)
	}
	return res, nil
}
