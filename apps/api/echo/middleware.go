package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/identity"
	"github.com/trezcool/academia/core/session"
)

// sessionMiddleware loads the session named by the JWT into the echo.Context.
// Must run after the JWT middleware.
func sessionMiddleware(store session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			sess, err := store.Load(ctx.Request().Context(), claims.Id)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					return errSessionExpired
				}
				return errors.Wrap(err, "loading session")
			}
			if !sess.IsLoggedIn() {
				return errSessionExpired
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

// with returns a fresh slice of mws followed by more.
func with(mws []echo.MiddlewareFunc, more ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws)+len(more))
	return append(append(out, mws...), more...)
}

// roleMiddleware lets through sessions having any of roles.
func roleMiddleware(roles ...identity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := getContextSession(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context session")
			}
			for _, role := range roles {
				if sess.Role() == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// checkCourseOwner allows administrators and the instructor teaching the course.
func checkCourseOwner(sess *session.Session, instructorID int) error {
	if sess.Role() == identity.RoleAdministrator {
		return nil
	}
	if userID, ok := sess.UserID(); ok && sess.Role() == identity.RoleInstructor && userID == instructorID {
		return nil
	}
	return errHttpForbidden
}
