package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coursework"
)

const (
	assignmentCols   = "id, course_id, title, description, due_date, is_published, created_at"
	distributionCols = "id, assignment_id, enrollment_id, submission_text, submitted_at, is_graded, score, feedback, graded_at"
)

type assignmentRow struct {
	ID          int       `db:"id"`
	CourseID    int       `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     time.Time `db:"due_date"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r assignmentRow) toAssignment() coursework.Assignment {
	return coursework.Assignment{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     core.Date(r.DueDate),
		IsPublished: r.IsPublished,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

type distributionRow struct {
	ID             int          `db:"id"`
	AssignmentID   int          `db:"assignment_id"`
	EnrollmentID   int          `db:"enrollment_id"`
	SubmissionText null.String  `db:"submission_text"`
	SubmittedAt    null.Time    `db:"submitted_at"`
	IsGraded       bool         `db:"is_graded"`
	Score          null.Float64 `db:"score"`
	Feedback       null.String  `db:"feedback"`
	GradedAt       null.Time    `db:"graded_at"`
}

func (r distributionRow) toDistribution() coursework.Distribution {
	return coursework.Distribution{
		ID:             r.ID,
		AssignmentID:   r.AssignmentID,
		EnrollmentID:   r.EnrollmentID,
		SubmissionText: r.SubmissionText.Ptr(),
		SubmittedAt:    utcPtr(r.SubmittedAt),
		IsGraded:       r.IsGraded,
		Score:          r.Score.Ptr(),
		Feedback:       r.Feedback.Ptr(),
		GradedAt:       utcPtr(r.GradedAt),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

type courseworkRepository struct {
	m *TxManager
}

var _ coursework.Repository = (*courseworkRepository)(nil) // interface compliance check

func NewCourseworkRepository(m *TxManager) coursework.Repository {
	return &courseworkRepository{m: m}
}

func (repo *courseworkRepository) CreateAssignment(ctx context.Context, asg coursework.Assignment) (coursework.Assignment, error) {
	err := repo.m.exec(ctx).QueryRowxContext(ctx, `
		INSERT INTO assignments (course_id, title, description, due_date, is_published, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		asg.CourseID, asg.Title, asg.Description, asg.DueDate, asg.IsPublished, asg.CreatedAt,
	).Scan(&asg.ID)
	if err != nil {
		return coursework.Assignment{}, trapErr(errors.Wrap(err, "inserting assignment"))
	}
	return asg, nil
}

func (repo *courseworkRepository) GetAssignment(ctx context.Context, id int) (coursework.Assignment, error) {
	var row assignmentRow
	q := "SELECT " + assignmentCols + " FROM assignments WHERE id = $1"
	if err := repo.m.exec(ctx).GetContext(ctx, &row, q, id); err != nil {
		return coursework.Assignment{}, trapErr(err, coursework.ErrAssignmentNotFound)
	}
	return row.toAssignment(), nil
}

func (repo *courseworkRepository) PublishAssignment(ctx context.Context, id int) (coursework.Assignment, error) {
	var row assignmentRow
	q := "UPDATE assignments SET is_published = TRUE WHERE id = $1 RETURNING " + assignmentCols
	if err := repo.m.exec(ctx).GetContext(ctx, &row, q, id); err != nil {
		return coursework.Assignment{}, trapErr(errors.Wrap(err, "updating assignment"), coursework.ErrAssignmentNotFound)
	}
	return row.toAssignment(), nil
}

// CreateDistribution copies the assignment's course onto the row; the composite foreign keys then reject
// an enrollment of another course.
func (repo *courseworkRepository) CreateDistribution(ctx context.Context, d coursework.Distribution) (coursework.Distribution, error) {
	var row distributionRow
	err := repo.m.exec(ctx).GetContext(ctx, &row, `
		INSERT INTO distributions (assignment_id, enrollment_id, course_id)
		SELECT a.id, $2, a.course_id FROM assignments a WHERE a.id = $1
		RETURNING `+distributionCols,
		d.AssignmentID, d.EnrollmentID,
	)
	switch {
	case err == nil:
		return row.toDistribution(), nil
	case isUniqueViolation(err):
		return coursework.Distribution{}, coursework.ErrDuplicateDistrib
	case isForeignKeyViolation(err):
		return coursework.Distribution{}, coursework.ErrNotEnrolled
	default:
		return coursework.Distribution{}, trapErr(err, coursework.ErrAssignmentNotFound)
	}
}

func (repo *courseworkRepository) GetDistribution(ctx context.Context, id int) (coursework.Distribution, error) {
	var row distributionRow
	q := "SELECT " + distributionCols + " FROM distributions WHERE id = $1"
	if err := repo.m.exec(ctx).GetContext(ctx, &row, q, id); err != nil {
		return coursework.Distribution{}, trapErr(err, coursework.ErrDistributionNotFound)
	}
	return row.toDistribution(), nil
}

func (repo *courseworkRepository) QueryDistributions(ctx context.Context, assignmentID int) ([]coursework.Distribution, error) {
	var rows []distributionRow
	q := "SELECT " + distributionCols + " FROM distributions WHERE assignment_id = $1 ORDER BY id"
	if err := repo.m.exec(ctx).SelectContext(ctx, &rows, q, assignmentID); err != nil {
		return nil, trapErr(err)
	}
	dists := make([]coursework.Distribution, 0, len(rows))
	for _, r := range rows {
		dists = append(dists, r.toDistribution())
	}
	return dists, nil
}

// UpsertSubmission relies on the conditional ON CONFLICT update: a graded row is left untouched
// and no row comes back.
func (repo *courseworkRepository) UpsertSubmission(
	ctx context.Context,
	assignmentID, enrollmentID int,
	text string,
	at time.Time,
) (coursework.Distribution, error) {
	var row distributionRow
	err := repo.m.exec(ctx).GetContext(ctx, &row, `
		INSERT INTO distributions (assignment_id, enrollment_id, course_id, submission_text, submitted_at)
		SELECT a.id, $2, a.course_id, $3, $4 FROM assignments a WHERE a.id = $1
		ON CONFLICT (assignment_id, enrollment_id) DO UPDATE
		SET submission_text = EXCLUDED.submission_text, submitted_at = EXCLUDED.submitted_at
		WHERE distributions.is_graded = FALSE
		RETURNING `+distributionCols,
		assignmentID, enrollmentID, text, at,
	)
	switch {
	case err == nil:
		return row.toDistribution(), nil
	case errors.Is(err, sql.ErrNoRows):
		return coursework.Distribution{}, repo.noUpsertReason(ctx, assignmentID)
	case isForeignKeyViolation(err):
		return coursework.Distribution{}, coursework.ErrNotEnrolled
	default:
		return coursework.Distribution{}, trapErr(errors.Wrap(err, "upserting submission"))
	}
}

// noUpsertReason tells a missing assignment from a graded row.
func (repo *courseworkRepository) noUpsertReason(ctx context.Context, assignmentID int) error {
	if _, err := repo.GetAssignment(ctx, assignmentID); err != nil {
		return err
	}
	return coursework.ErrAlreadyGraded
}

func (repo *courseworkRepository) UpdateGrade(
	ctx context.Context,
	id int,
	score float64,
	feedback string,
	at time.Time,
) (coursework.Distribution, error) {
	var row distributionRow
	err := repo.m.exec(ctx).GetContext(ctx, &row, `
		UPDATE distributions SET is_graded = TRUE, score = $1, feedback = $2, graded_at = $3
		WHERE id = $4
		RETURNING `+distributionCols,
		score, feedback, at, id,
	)
	if err != nil {
		return coursework.Distribution{}, trapErr(err, coursework.ErrDistributionNotFound)
	}
	return row.toDistribution(), nil
}
