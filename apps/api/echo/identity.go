package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/identity"
)

type identityApi struct {
	svc *identity.Service
}

func registerIdentityAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *identity.Service) {
	api := identityApi{svc: svc}

	ig := g.Group("/identities", authed...)
	ig.GET("/me", api.me)
	ig.PUT("/me", api.updateProfile)

	// admin endpoints
	admin := roleMiddleware(identity.RoleAdministrator)
	ig.POST("", api.create, admin)
	ig.GET("", api.query, admin)
	ig.POST("/:id/activate", api.activate, admin)
	ig.POST("/:id/deactivate", api.deactivate, admin)
}

// Handlers

func (api *identityApi) create(ctx echo.Context) error {
	var data NewIdentityRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIdentityRequest")
	}
	idt, err := api.svc.Create(ctx.Request().Context(), data.toNewIdentity())
	if err != nil {
		return errors.Wrap(err, "creating identity")
	}
	return ctx.JSON(http.StatusCreated, idt)
}

func (api *identityApi) query(ctx echo.Context) error {
	filter := new(identity.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []identity.Identity{})
	}
	idts, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying identities")
	}
	if idts == nil {
		idts = []identity.Identity{}
	}
	return ctx.JSON(http.StatusOK, idts)
}

func (api *identityApi) me(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	userID, _ := sess.UserID()
	idt, err := api.svc.Get(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "finding identity")
	}
	return ctx.JSON(http.StatusOK, idt)
}

func (api *identityApi) updateProfile(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	var data ProfileUpdateRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProfileUpdateRequest")
	}
	userID, _ := sess.UserID()
	idt, err := api.svc.UpdateProfile(ctx.Request().Context(), userID, data.toProfileUpdate())
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, idt)
}

func (api *identityApi) activate(ctx echo.Context) error {
	return api.setActive(ctx, true)
}

func (api *identityApi) deactivate(ctx echo.Context) error {
	return api.setActive(ctx, false)
}

func (api *identityApi) setActive(ctx echo.Context, active bool) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var idt identity.Identity
	if active {
		idt, err = api.svc.Activate(ctx.Request().Context(), id)
	} else {
		idt, err = api.svc.Deactivate(ctx.Request().Context(), id)
	}
	if err != nil {
		return errors.Wrap(err, "setting identity active")
	}
	return ctx.JSON(http.StatusOK, idt)
}
