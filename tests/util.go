package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/analytics"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

// Password satisfies the password policy for every identity created by CreateIdentity.
const Password = "Sup3r-s3cret!"

func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	return conf
}

func NewValidator() *core.Validator {
	v := core.NewValidator()
	identity.InitValidators(v)
	enrollment.InitValidators(v)
	return v
}

func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// App wires every service on a fresh in-memory store.
type App struct {
	Conf       *core.Config
	Validator  *core.Validator
	Logger     *logsvc.RollbarLogger
	DB         *inmemdb.DB
	Mail       *emailsvc.ConsoleServiceMock
	Identities *identity.Service
	Ledger     *enrollment.Service
	Engine     *coursework.Engine
	Analytics  *analytics.Aggregator
	Auth       *auth.Service
	Audit      auth.AuditLog

	IdentityRepo   identity.Repository
	EnrollmentRepo enrollment.Repository
	CourseworkRepo coursework.Repository
}

func NewApp() *App {
	conf := NewConfig()
	v := NewValidator()
	logger := NewLogger(conf)
	db := inmemdb.Open()

	app := &App{
		Conf:           conf,
		Validator:      v,
		Logger:         logger,
		DB:             db,
		Mail:           emailsvc.NewConsoleServiceMock(conf),
		Audit:          inmemdb.NewAuditLog(db),
		IdentityRepo:   inmemdb.NewIdentityRepository(db),
		EnrollmentRepo: inmemdb.NewEnrollmentRepository(db),
		CourseworkRepo: inmemdb.NewCourseworkRepository(db),
	}
	app.Identities = identity.NewService(app.IdentityRepo, v)
	app.Ledger = enrollment.NewService(app.EnrollmentRepo, app.IdentityRepo, db, v)
	app.Engine = coursework.NewEngine(app.CourseworkRepo, app.EnrollmentRepo, app.IdentityRepo, db, app.Mail, logger, v)
	app.Analytics = analytics.NewAggregator(inmemdb.NewAnalyticsRepository(db))
	app.Auth = auth.NewService(app.Identities, app.Audit, logger)
	return app
}

// CreateIdentity stores an active identity whose password is Password.
func CreateIdentity(t *testing.T, repo identity.Repository, name, email string, role identity.Role) identity.Identity {
	t.Helper()

	// lowest cost keeps tests fast; CheckPassword reads the cost from the hash
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("CreateIdentity() failed: %v", err)
	}
	now := core.Now()
	idt, err := repo.CreateIdentity(context.Background(), identity.Identity{
		Name:         name,
		Email:        email,
		Role:         role,
		IsActive:     true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateIdentity() failed: %v", err)
	}
	return idt
}

func CreateCourse(t *testing.T, repo enrollment.Repository, name string, credits, instructorID int) enrollment.Course {
	t.Helper()

	c, err := repo.CreateCourse(context.Background(), enrollment.Course{
		Name:         name,
		Credits:      credits,
		InstructorID: instructorID,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func Enroll(t *testing.T, repo enrollment.Repository, studentID, courseID int) enrollment.Enrollment {
	t.Helper()

	start := Date(2024, time.January, 8)
	enr, err := repo.CreateEnrollment(context.Background(), enrollment.Enrollment{
		StudentID: studentID,
		CourseID:  courseID,
		StartDate: start,
		EndDate:   start.AddDate(0, 4, 0),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
