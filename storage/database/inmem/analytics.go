package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/analytics"
)

type analyticsRepository struct {
	db *DB
}

var _ analytics.Repository = (*analyticsRepository)(nil) // interface compliance check

func NewAnalyticsRepository(db *DB) analytics.Repository {
	return &analyticsRepository{db: db}
}

func (repo *analyticsRepository) CourseRows(ctx context.Context) ([]analytics.CourseRow, error) {
	defer repo.db.lock(ctx)()

	counts := make(map[int]int)
	for _, enr := range repo.db.enrollments {
		counts[enr.CourseID]++
	}

	rows := make([]analytics.CourseRow, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		rows = append(rows, analytics.CourseRow{
			CourseID:        c.ID,
			CourseName:      c.Name,
			Credits:         c.Credits,
			InstructorName:  repo.db.identities[c.InstructorID].Name,
			EnrollmentCount: counts[c.ID],
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CourseID < rows[j].CourseID })
	return rows, nil
}

func (repo *analyticsRepository) ScoreRows(ctx context.Context) ([]analytics.ScoreRow, error) {
	defer repo.db.lock(ctx)()

	ids := make([]int, 0, len(repo.db.distributions))
	for id, d := range repo.db.distributions {
		if d.IsGraded && d.Score != nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	rows := make([]analytics.ScoreRow, 0, len(ids))
	for _, id := range ids {
		d := repo.db.distributions[id]
		asg, ok := repo.db.assignments[d.AssignmentID]
		if !ok {
			continue
		}
		c := repo.db.courses[asg.CourseID]
		rows = append(rows, analytics.ScoreRow{
			CourseID:       c.ID,
			CourseName:     c.Name,
			InstructorName: repo.db.identities[c.InstructorID].Name,
			EnrollmentID:   d.EnrollmentID,
			Score:          *d.Score,
		})
	}
	return rows, nil
}

func (repo *analyticsRepository) MarkRows(ctx context.Context) ([]analytics.MarkRow, error) {
	defer repo.db.lock(ctx)()

	rows := make([]analytics.MarkRow, 0, len(repo.db.enrollments))
	for _, enr := range repo.db.enrollments {
		c, ok := repo.db.courses[enr.CourseID]
		if !ok {
			continue
		}
		row := analytics.MarkRow{
			CourseID:    c.ID,
			CourseName:  c.Name,
			StudentName: repo.db.identities[enr.StudentID].Name,
		}
		if enr.Grade != nil {
			g := *enr.Grade
			row.Grade = &g
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CourseName == rows[j].CourseName {
			return rows[i].StudentName < rows[j].StudentName
		}
		return rows[i].CourseName < rows[j].CourseName
	})
	return rows, nil
}
