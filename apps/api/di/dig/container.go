package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/analytics"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
	"github.com/trezcool/academia/core/session"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	rediscache "github.com/trezcool/academia/storage/cache/redis"
	"github.com/trezcool/academia/storage/database"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ServerParam struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Validator  *core.Validator
	Sessions   session.Store
	Auth       *auth.Service
	Identities *identity.Service
	Ledger     *enrollment.Service
	Engine     *coursework.Engine
	Analytics  *analytics.Aggregator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func(ctx context.Context) (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp(context.Background())
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newTxManager(m *sqlxrepos.TxManager) core.TxManager { return m }

// newSessionStore keeps sessions in redis when configured to, in process memory otherwise.
func newSessionStore(conf *core.Config, logger core.Logger) session.Store {
	if conf.Session.Backend != "redis" {
		return session.NewMemoryStore(conf.Session.TTL)
	}
	client, err := rediscache.NewClient(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return rediscache.NewSessionStore(client, conf.Session.TTL)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, log.New(os.Stdout, "EMAIL : ", log.LstdFlags))
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() *core.Validator {
	v := core.NewValidator()
	identity.InitValidators(v)
	enrollment.InitValidators(v)
	return v
}

func newServer(p ServerParam) *echoapi.Server {
	return echoapi.NewServer(echoapi.Deps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validator:  p.Validator,
		Sessions:   p.Sessions,
		Auth:       p.Auth,
		Identities: p.Identities,
		Ledger:     p.Ledger,
		Engine:     p.Engine,
		Analytics:  p.Analytics,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewTxManager))
	must(c.Provide(newTxManager))
	must(c.Provide(newSessionStore))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewIdentityRepository))
	must(c.Provide(sqlxrepos.NewEnrollmentRepository))
	must(c.Provide(sqlxrepos.NewCourseworkRepository))
	must(c.Provide(sqlxrepos.NewAuditLog))
	must(c.Provide(sqlxrepos.NewAnalyticsRepository))
	must(c.Provide(func(repo identity.Repository) enrollment.IdentityGetter { return repo }))
	must(c.Provide(func(repo identity.Repository) coursework.IdentityGetter { return repo }))
	must(c.Provide(func(repo enrollment.Repository) coursework.Ledger { return repo }))

	// services
	must(c.Provide(identity.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(coursework.NewEngine))
	must(c.Provide(analytics.NewAggregator))
	must(c.Provide(auth.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
