package coursework

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
)

var (
	// errors
	ErrAssignmentNotFound   = core.NewNotFoundError("assignment not found")
	ErrDistributionNotFound = core.NewNotFoundError("distribution not found")
	ErrNotEnrolled          = core.NewNotFoundError("student is not enrolled in the assignment's course")
	ErrAlreadyGraded        = core.NewConflictError("submission has already been graded")
	ErrNotSubmitted         = core.NewConflictError("nothing has been submitted yet")
	ErrDuplicateDistrib     = core.NewConflictError("assignment already distributed to this enrollment")
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, asg Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id int) (Assignment, error)
		// PublishAssignment sets the published flag. Publishing a published assignment is a no-op.
		PublishAssignment(ctx context.Context, id int) (Assignment, error)
		// CreateDistribution fails with ErrDuplicateDistrib if the (assignment, enrollment) pair exists.
		CreateDistribution(ctx context.Context, d Distribution) (Distribution, error)
		GetDistribution(ctx context.Context, id int) (Distribution, error)
		QueryDistributions(ctx context.Context, assignmentID int) ([]Distribution, error)
		// UpsertSubmission writes the submission on the (assignment, enrollment) row, creating it if needed.
		// It fails with ErrAlreadyGraded, leaving the row untouched, once the row is graded.
		UpsertSubmission(ctx context.Context, assignmentID, enrollmentID int, text string, at time.Time) (Distribution, error)
		UpdateGrade(ctx context.Context, id int, score float64, feedback string, at time.Time) (Distribution, error)
	}

	// Ledger is the part of enrollment.Repository the engine needs.
	Ledger interface {
		LockCourse(ctx context.Context, id int) (enrollment.Course, error)
		FindEnrollment(ctx context.Context, studentID, courseID int) (enrollment.Enrollment, error)
		QueryEnrollments(ctx context.Context, filter enrollment.EnrollmentFilter) ([]enrollment.Enrollment, error)
	}

	IdentityGetter interface {
		GetIdentity(ctx context.Context, id int) (identity.Identity, error)
	}

	Engine struct {
		repo       Repository
		ledger     Ledger
		identities IdentityGetter
		tx         core.TxManager
		mailSvc    core.EmailService
		logger     core.Logger
		validator  *core.Validator
	}
)

func NewEngine(
	repo Repository,
	ledger Ledger,
	identities IdentityGetter,
	tx core.TxManager,
	mailSvc core.EmailService,
	logger core.Logger,
	v *core.Validator,
) *Engine {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(ledger, "ledger"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(v, "validator"),
	).CheckAndPanic()

	return &Engine{
		repo:       repo,
		ledger:     ledger,
		identities: identities,
		tx:         tx,
		mailSvc:    mailSvc,
		logger:     logger,
		validator:  v,
	}
}

// CreateAssignment inserts the assignment and one Pending distribution per enrollment of its course,
// all in one transaction. The course row stays locked until commit so no enrollment can slip in
// between the snapshot and the batch insert. Students enrolling afterwards get no distribution.
//
// Any failure rolls everything back; it is reported as a *core.TransactionError, except for
// validation and unknown-course errors which are raised before anything is written.
func (engine *Engine) CreateAssignment(ctx context.Context, na NewAssignment) (Assignment, []Distribution, error) {
	if err := na.Validate(engine.validator); err != nil {
		return Assignment{}, nil, err
	}

	var (
		asg      Assignment
		dists    []Distribution
		snapshot []enrollment.Enrollment
		course   enrollment.Course
	)
	err := engine.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if course, err = engine.ledger.LockCourse(ctx, na.CourseID); err != nil {
			return err
		}

		asg, err = engine.repo.CreateAssignment(ctx, Assignment{
			CourseID:    course.ID,
			Title:       na.Title,
			Description: na.Description,
			DueDate:     na.DueDate,
			IsPublished: na.Publish,
			CreatedAt:   core.Now(),
		})
		if err != nil {
			return errors.Wrap(err, "inserting assignment")
		}

		snapshot, err = engine.ledger.QueryEnrollments(ctx, enrollment.EnrollmentFilter{CourseID: course.ID})
		if err != nil {
			return errors.Wrap(err, "reading enrollments")
		}

		dists = make([]Distribution, 0, len(snapshot))
		for _, enr := range snapshot {
			d, err := engine.repo.CreateDistribution(ctx, Distribution{AssignmentID: asg.ID, EnrollmentID: enr.ID})
			if err != nil {
				return errors.Wrapf(err, "distributing to enrollment %d", enr.ID)
			}
			dists = append(dists, d)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, enrollment.ErrCourseNotFound) {
			return Assignment{}, nil, err
		}
		return Assignment{}, nil, core.NewTransactionError(errors.Wrap(err, "creating assignment"))
	}

	if asg.IsPublished {
		engine.notify(ctx, course, asg, snapshot)
	}
	return asg, dists, nil
}

// PublishAssignment makes a draft assignment visible to the students of its course and notifies them.
// Publishing an already published assignment returns it unchanged and sends nothing.
func (engine *Engine) PublishAssignment(ctx context.Context, id int) (Assignment, error) {
	var (
		asg    Assignment
		course enrollment.Course
		enrs   []enrollment.Enrollment
		wasPub bool
	)
	err := engine.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := engine.repo.GetAssignment(ctx, id)
		if err != nil {
			return err
		}
		if course, err = engine.ledger.LockCourse(ctx, current.CourseID); err != nil {
			return err
		}
		// re-read under the course lock: concurrent publishes notify once
		if current, err = engine.repo.GetAssignment(ctx, id); err != nil {
			return err
		}
		if current.IsPublished {
			asg, wasPub = current, true
			return nil
		}
		if asg, err = engine.repo.PublishAssignment(ctx, id); err != nil {
			return errors.Wrap(err, "publishing assignment")
		}
		enrs, err = engine.ledger.QueryEnrollments(ctx, enrollment.EnrollmentFilter{CourseID: course.ID})
		return errors.Wrap(err, "reading enrollments")
	})
	if err != nil {
		return Assignment{}, err
	}

	if !wasPub {
		engine.notify(ctx, course, asg, enrs)
	}
	return asg, nil
}

// StudentAssignment returns the assignment as seen by a student: drafts and assignments of courses
// the student is not enrolled in are reported as ErrAssignmentNotFound.
func (engine *Engine) StudentAssignment(ctx context.Context, assignmentID, studentID int) (Assignment, error) {
	asg, err := engine.publishedAssignment(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if _, err = engine.ledger.FindEnrollment(ctx, studentID, asg.CourseID); err != nil {
		if errors.Is(err, enrollment.ErrEnrollmentNotFound) {
			return Assignment{}, ErrAssignmentNotFound
		}
		return Assignment{}, errors.Wrap(err, "finding enrollment")
	}
	return asg, nil
}

// SubmitAssignment records the submission of a student, replacing any earlier ungraded one.
// It fails with ErrNotEnrolled, without writing anything, if the student is not enrolled in the assignment's course.
// Drafts take no submission: they fail with ErrAssignmentNotFound.
func (engine *Engine) SubmitAssignment(ctx context.Context, assignmentID, studentID int, text string) (Distribution, error) {
	sub := submission{AssignmentID: assignmentID, StudentID: studentID, Text: text}
	if err := engine.validator.Struct(sub); err != nil {
		return Distribution{}, err
	}

	asg, err := engine.publishedAssignment(ctx, assignmentID)
	if err != nil {
		return Distribution{}, err
	}
	enr, err := engine.ledger.FindEnrollment(ctx, studentID, asg.CourseID)
	if err != nil {
		if errors.Is(err, enrollment.ErrEnrollmentNotFound) {
			return Distribution{}, ErrNotEnrolled
		}
		return Distribution{}, errors.Wrap(err, "finding enrollment")
	}
	return engine.repo.UpsertSubmission(ctx, asg.ID, enr.ID, text, core.Now())
}

func (engine *Engine) publishedAssignment(ctx context.Context, id int) (Assignment, error) {
	asg, err := engine.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	if !asg.IsPublished {
		return Assignment{}, ErrAssignmentNotFound
	}
	return asg, nil
}

// GradeDistribution grades a submitted distribution. Grading a graded one again replaces its score and feedback.
func (engine *Engine) GradeDistribution(ctx context.Context, distributionID int, grade Grade) (Distribution, error) {
	grade.Feedback = core.CleanString(grade.Feedback)
	if err := engine.validator.Struct(grade); err != nil {
		return Distribution{}, err
	}

	d, err := engine.repo.GetDistribution(ctx, distributionID)
	if err != nil {
		return Distribution{}, err
	}
	if d.State() == StatePending {
		return Distribution{}, ErrNotSubmitted
	}
	return engine.repo.UpdateGrade(ctx, d.ID, grade.Score, grade.Feedback, core.Now())
}

func (engine *Engine) GetAssignment(ctx context.Context, id int) (Assignment, error) {
	return engine.repo.GetAssignment(ctx, id)
}

func (engine *Engine) GetDistribution(ctx context.Context, id int) (Distribution, error) {
	return engine.repo.GetDistribution(ctx, id)
}

func (engine *Engine) ListDistributions(ctx context.Context, assignmentID int) ([]Distribution, error) {
	if _, err := engine.repo.GetAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}
	return engine.repo.QueryDistributions(ctx, assignmentID)
}

// notify emails the students of a freshly published assignment. Failures are logged, never returned.
func (engine *Engine) notify(ctx context.Context, course enrollment.Course, asg Assignment, enrs []enrollment.Enrollment) {
	if engine.mailSvc == nil || engine.identities == nil || len(enrs) == 0 {
		return
	}

	msgs := make([]*core.EmailMessage, 0, len(enrs))
	for _, enr := range enrs {
		student, err := engine.identities.GetIdentity(ctx, enr.StudentID)
		if err != nil {
			engine.logError(fmt.Sprintf("notifying student %d: %v", enr.StudentID, err), err)
			continue
		}
		if !student.IsActive {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:      []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject: fmt.Sprintf("%s: new assignment %q", course.Name, asg.Title),
			BodyStr: fmt.Sprintf(
				"Hi %s,\n\nA new assignment was published in %s.\n\n%s\n%s\n\nDue on %s.",
				student.Name, course.Name, asg.Title, asg.Description, asg.DueDate.Format("Mon, 02 Jan 2006"),
			),
		})
	}
	engine.mailSvc.SendMessages(msgs...)
}

func (engine *Engine) logError(msg string, args ...interface{}) {
	if engine.logger != nil {
		engine.logger.Error(msg, args...)
	}
}
