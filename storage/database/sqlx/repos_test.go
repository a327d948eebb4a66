package sqlxrepos

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/identity"
	testutil "github.com/trezcool/academia/tests"
)

var identityColumns = []string{
	"id", "name", "email", "role", "department", "date_of_birth", "is_active", "password_hash", "created_at", "updated_at",
}

var distributionColumns = []string{
	"id", "assignment_id", "enrollment_id", "submission_text", "submitted_at", "is_graded", "score", "feedback", "graded_at",
}

func newMock(t *testing.T) (*TxManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewTxManager(sqlx.NewDb(db, "postgres")), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestTrapErr(t *testing.T) {
	errNotFound := errors.New("not found")

	tests := []struct {
		name             string
		err              error
		wantErr          error
		wantConnectivity bool
	}{
		{name: "nil", err: nil},
		{name: "no rows", err: sql.ErrNoRows, wantErr: errNotFound},
		{name: "connection exception", err: &pq.Error{Code: "08006"}, wantConnectivity: true},
		{name: "bad conn", err: errors.Wrap(sql.ErrConnDone, "querying"), wantConnectivity: true},
		{name: "other", err: &pq.Error{Code: "23505"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := trapErr(tt.err, errNotFound)
			assert.Equal(t, tt.wantConnectivity, core.IsConnectivity(err))
			switch {
			case tt.err == nil:
				assert.NoError(t, err)
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case !tt.wantConnectivity:
				assert.Equal(t, tt.err, err)
			}
		})
	}
}

func TestTxManager_WithinTx(t *testing.T) {
	ctx := context.Background()
	updatePwd := q("UPDATE identities SET password_hash = $1, updated_at = $2 WHERE id = $3")

	t.Run("commit", func(t *testing.T) {
		m, mock := newMock(t)
		repo := NewIdentityRepository(m)
		mock.ExpectBegin()
		mock.ExpectExec(updatePwd).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := m.WithinTx(ctx, func(ctx context.Context) error {
			n, err := repo.UpdatePassword(ctx, 1, []byte("hash"))
			assert.Equal(t, int64(1), n)
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		m, mock := newMock(t)
		repo := NewIdentityRepository(m)
		errDisk := errors.New("disk full")
		mock.ExpectBegin()
		mock.ExpectExec(updatePwd).WillReturnError(errDisk)
		mock.ExpectRollback()

		err := m.WithinTx(ctx, func(ctx context.Context) error {
			_, err := repo.UpdatePassword(ctx, 1, []byte("hash"))
			return err
		})
		assert.ErrorIs(t, err, errDisk)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin fails", func(t *testing.T) {
		m, mock := newMock(t)
		mock.ExpectBegin().WillReturnError(&pq.Error{Code: "08006"})

		err := m.WithinTx(ctx, func(ctx context.Context) error { return nil })
		assert.True(t, core.IsConnectivity(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIdentityRepository_GetIdentityByEmail(t *testing.T) {
	ctx := context.Background()
	m, mock := newMock(t)
	repo := NewIdentityRepository(m)
	cols := identityColumns
	now := time.Date(2024, time.January, 8, 10, 0, 0, 0, time.UTC)
	dob := time.Date(2001, time.May, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("WHERE i.email = $1")).WithArgs("amy@test.cd").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "Amy", "amy@test.cd", "student", nil, dob, true, []byte("hash"), now, now))
	mock.ExpectQuery(q("WHERE i.email = $1")).WithArgs("ghost@test.cd").
		WillReturnRows(sqlmock.NewRows(cols))

	idt, err := repo.GetIdentityByEmail(ctx, "amy@test.cd")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleStudent, idt.Role)
	assert.Equal(t, "", idt.Department)
	require.NotNil(t, idt.DateOfBirth)
	assert.Equal(t, dob, *idt.DateOfBirth)

	_, err = repo.GetIdentityByEmail(ctx, "ghost@test.cd")
	assert.ErrorIs(t, err, identity.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRepository_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.January, 8, 10, 0, 0, 0, time.UTC)
	updateIdt := q("UPDATE identities SET name = $1, updated_at = $2 WHERE id = $3")

	t.Run("instructor", func(t *testing.T) {
		m, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(updateIdt).WithArgs("Prof X", now, 7).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q("INSERT INTO instructor_profiles (identity_id, department) VALUES ($1, $2)")).
			WithArgs(7, "Physics").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(q("WHERE i.id = $1")).WithArgs(7).
			WillReturnRows(sqlmock.NewRows(identityColumns).
				AddRow(7, "Prof X", "prof@test.cd", "instructor", "Physics", nil, true, []byte("hash"), now, now))
		mock.ExpectCommit()

		idt, err := NewIdentityRepository(m).UpdateProfile(ctx, identity.Identity{
			ID: 7, Name: "Prof X", Role: identity.RoleInstructor, Department: "Physics", UpdatedAt: now,
		})
		require.NoError(t, err)
		assert.Equal(t, "Physics", idt.Department)
		assert.Equal(t, now, idt.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown identity", func(t *testing.T) {
		m, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(updateIdt).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := NewIdentityRepository(m).UpdateProfile(ctx, identity.Identity{ID: 99, Name: "Ghost", Role: identity.RoleStudent})
		assert.ErrorIs(t, err, identity.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCourseworkRepository_UpsertSubmission(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, time.January, 20, 9, 0, 0, 0, time.UTC)
	upsert := q("INSERT INTO distributions (assignment_id, enrollment_id, course_id, submission_text, submitted_at)")
	getAsg := q("FROM assignments WHERE id = $1")
	asgCols := []string{"id", "course_id", "title", "description", "due_date", "is_published", "created_at"}

	t.Run("submitted", func(t *testing.T) {
		m, mock := newMock(t)
		mock.ExpectQuery(upsert).WithArgs(10, 20, "answer", at).
			WillReturnRows(sqlmock.NewRows(distributionColumns).AddRow(1, 10, 20, "answer", at, false, nil, nil, nil))

		d, err := NewCourseworkRepository(m).UpsertSubmission(ctx, 10, 20, "answer", at)
		require.NoError(t, err)
		assert.Equal(t, coursework.StateSubmitted, d.State())
		assert.Nil(t, d.Score)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("graded", func(t *testing.T) {
		m, mock := newMock(t)
		mock.ExpectQuery(upsert).WillReturnRows(sqlmock.NewRows(distributionColumns))
		mock.ExpectQuery(getAsg).WithArgs(10).
			WillReturnRows(sqlmock.NewRows(asgCols).AddRow(10, 1, "HW1", "", at, true, at))

		_, err := NewCourseworkRepository(m).UpsertSubmission(ctx, 10, 20, "answer", at)
		assert.ErrorIs(t, err, coursework.ErrAlreadyGraded)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown assignment", func(t *testing.T) {
		m, mock := newMock(t)
		mock.ExpectQuery(upsert).WillReturnRows(sqlmock.NewRows(distributionColumns))
		mock.ExpectQuery(getAsg).WithArgs(10).WillReturnRows(sqlmock.NewRows(asgCols))

		_, err := NewCourseworkRepository(m).UpsertSubmission(ctx, 10, 20, "answer", at)
		assert.ErrorIs(t, err, coursework.ErrAssignmentNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("enrollment of another course", func(t *testing.T) {
		m, mock := newMock(t)
		mock.ExpectQuery(upsert).WillReturnError(&pq.Error{Code: "23503"})

		_, err := NewCourseworkRepository(m).UpsertSubmission(ctx, 10, 20, "answer", at)
		assert.ErrorIs(t, err, coursework.ErrNotEnrolled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEngine_CreateAssignment_rollsBackOnPostgres(t *testing.T) {
	ctx := context.Background()
	m, mock := newMock(t)
	conf := testutil.NewConfig()
	engine := coursework.NewEngine(
		NewCourseworkRepository(m), NewEnrollmentRepository(m), NewIdentityRepository(m), m, nil,
		testutil.NewLogger(conf), testutil.NewValidator(),
	)
	start := time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 4, 0)
	enrCols := []string{"id", "student_id", "course_id", "start_date", "end_date", "grade", "grade_updated_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM courses WHERE id = $1 FOR UPDATE")).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "credits", "instructor_id", "is_active"}).AddRow(1, "CS101", 3, 7, true))
	mock.ExpectQuery(q("INSERT INTO assignments")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery(q("FROM enrollments WHERE course_id = $1 ORDER BY id")).WithArgs(1).
		WillReturnRows(sqlmock.NewRows(enrCols).
			AddRow(100, 2, 1, start, end, nil, nil).
			AddRow(101, 3, 1, start, end, nil, nil))
	mock.ExpectQuery(q("INSERT INTO distributions (assignment_id, enrollment_id, course_id)")).WithArgs(10, 100).
		WillReturnRows(sqlmock.NewRows(distributionColumns).AddRow(1, 10, 100, nil, nil, false, nil, nil, nil))
	mock.ExpectQuery(q("INSERT INTO distributions (assignment_id, enrollment_id, course_id)")).WithArgs(10, 101).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, dists, err := engine.CreateAssignment(ctx, coursework.NewAssignment{
		CourseID: 1,
		Title:    "Homework 1",
		DueDate:  time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.True(t, core.IsTransaction(err))
	assert.Nil(t, dists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseworkRepository_PublishAssignment(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, time.January, 20, 9, 0, 0, 0, time.UTC)
	publish := q("UPDATE assignments SET is_published = TRUE WHERE id = $1 RETURNING")
	asgCols := []string{"id", "course_id", "title", "description", "due_date", "is_published", "created_at"}

	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
	}{
		{name: "published", rows: sqlmock.NewRows(asgCols).AddRow(10, 1, "HW1", "", at, true, at)},
		{name: "unknown assignment", rows: sqlmock.NewRows(asgCols), wantErr: coursework.ErrAssignmentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, mock := newMock(t)
			mock.ExpectQuery(publish).WithArgs(10).WillReturnRows(tt.rows)

			asg, err := NewCourseworkRepository(m).PublishAssignment(ctx, 10)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.True(t, asg.IsPublished)
				assert.Equal(t, 10, asg.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
