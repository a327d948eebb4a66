package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/analytics"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
	"github.com/trezcool/academia/core/session"
)

type (
	Deps struct {
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

	Server struct {
		conf     *core.Config
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil) // interface compliance check

func NewServer(deps Deps) *Server {
	s := &Server{
		conf:     deps.Conf,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	if !deps.Conf.TestMode {
		signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	}
	s.setup(deps)
	return s
}

func (s *Server) setup(deps Deps) {
	debug := s.conf.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Validator, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	tokens := newTokenIssuer(s.conf)
	authed := []echo.MiddlewareFunc{
		middleware.JWTWithConfig(tokens.jwtConfig),
		sessionMiddleware(deps.Sessions),
	}

	registerAuthAPI(v1, authed, tokens, deps.Auth, deps.Sessions, deps.Validator)
	registerIdentityAPI(v1, authed, deps.Identities)
	registerCourseAPI(v1, authed, deps.Ledger)
	registerCourseworkAPI(v1, authed, deps.Engine, deps.Ledger)
	registerAnalyticsAPI(v1, authed, deps.Analytics)
}

// Start blocks serving requests. A listener failure is reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Host); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error { return s.app.Shutdown(ctx) }

func (s *Server) Close() error { return s.app.Close() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Academia API!")
}
