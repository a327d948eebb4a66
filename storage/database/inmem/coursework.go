package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/coursework"
)

var errCourseMismatch = errors.New("enrollment and assignment belong to different courses")

type courseworkRepository struct {
	db *DB
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(db *DB) coursework.Repository {
	return &courseworkRepository{db: db}
}

func (repo *courseworkRepository) CreateAssignment(ctx context.Context, asg coursework.Assignment) (coursework.Assignment, error) {
	defer repo.db.lock(ctx)()

	asg.ID = repo.db.nextID("assignments")
	repo.db.assignments[asg.ID] = asg
	return asg, nil
}

func (repo *courseworkRepository) GetAssignment(ctx context.Context, id int) (coursework.Assignment, error) {
	defer repo.db.lock(ctx)()

	if asg, ok := repo.db.assignments[id]; ok {
		return asg, nil
	}
	return coursework.Assignment{}, coursework.ErrAssignmentNotFound
}

func (repo *courseworkRepository) PublishAssignment(ctx context.Context, id int) (coursework.Assignment, error) {
	defer repo.db.lock(ctx)()

	asg, ok := repo.db.assignments[id]
	if !ok {
		return coursework.Assignment{}, coursework.ErrAssignmentNotFound
	}
	asg.IsPublished = true
	repo.db.assignments[id] = asg
	return asg, nil
}

func (repo *courseworkRepository) CreateDistribution(ctx context.Context, d coursework.Distribution) (coursework.Distribution, error) {
	defer repo.db.lock(ctx)()

	if err := repo.checkPair(d.AssignmentID, d.EnrollmentID); err != nil {
		return coursework.Distribution{}, err
	}
	if _, ok := repo.find(d.AssignmentID, d.EnrollmentID); ok {
		return coursework.Distribution{}, coursework.ErrDuplicateDistrib
	}
	d.ID = repo.db.nextID("distributions")
	repo.db.distributions[d.ID] = d
	return d, nil
}

func (repo *courseworkRepository) GetDistribution(ctx context.Context, id int) (coursework.Distribution, error) {
	defer repo.db.lock(ctx)()

	if d, ok := repo.db.distributions[id]; ok {
		return d, nil
	}
	return coursework.Distribution{}, coursework.ErrDistributionNotFound
}

func (repo *courseworkRepository) QueryDistributions(ctx context.Context, assignmentID int) ([]coursework.Distribution, error) {
	defer repo.db.lock(ctx)()

	dists := make([]coursework.Distribution, 0)
	for _, d := range repo.db.distributions {
		if d.AssignmentID == assignmentID {
			dists = append(dists, d)
		}
	}
	sort.Slice(dists, func(i, j int) bool { return dists[i].ID < dists[j].ID })
	return dists, nil
}

func (repo *courseworkRepository) UpsertSubmission(
	ctx context.Context,
	assignmentID, enrollmentID int,
	text string,
	at time.Time,
) (coursework.Distribution, error) {
	defer repo.db.lock(ctx)()

	d, ok := repo.find(assignmentID, enrollmentID)
	if !ok {
		if err := repo.checkPair(assignmentID, enrollmentID); err != nil {
			return coursework.Distribution{}, err
		}
		d = coursework.Distribution{
			ID:           repo.db.nextID("distributions"),
			AssignmentID: assignmentID,
			EnrollmentID: enrollmentID,
		}
	}
	if d.IsGraded {
		return coursework.Distribution{}, coursework.ErrAlreadyGraded
	}
	d.SubmissionText = &text
	d.SubmittedAt = &at
	repo.db.distributions[d.ID] = d
	return d, nil
}

func (repo *courseworkRepository) UpdateGrade(
	ctx context.Context,
	id int,
	score float64,
	feedback string,
	at time.Time,
) (coursework.Distribution, error) {
	defer repo.db.lock(ctx)()

	d, ok := repo.db.distributions[id]
	if !ok {
		return coursework.Distribution{}, coursework.ErrDistributionNotFound
	}
	d.IsGraded = true
	d.Score = &score
	d.Feedback = &feedback
	d.GradedAt = &at
	repo.db.distributions[id] = d
	return d, nil
}

func (repo *courseworkRepository) find(assignmentID, enrollmentID int) (coursework.Distribution, bool) {
	for _, d := range repo.db.distributions {
		if d.AssignmentID == assignmentID && d.EnrollmentID == enrollmentID {
			return d, true
		}
	}
	return coursework.Distribution{}, false
}

// checkPair enforces that the enrollment belongs to the assignment's course.
func (repo *courseworkRepository) checkPair(assignmentID, enrollmentID int) error {
	asg, ok := repo.db.assignments[assignmentID]
	if !ok {
		return coursework.ErrAssignmentNotFound
	}
	enr, ok := repo.db.enrollments[enrollmentID]
	if !ok {
		return coursework.ErrNotEnrolled
	}
	if enr.CourseID != asg.CourseID {
		return errCourseMismatch
	}
	return nil
}
