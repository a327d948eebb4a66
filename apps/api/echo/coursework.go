package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
)

type courseworkApi struct {
	engine *coursework.Engine
	ledger *enrollment.Service
}

func registerCourseworkAPI(g *echo.Group, authed []echo.MiddlewareFunc, engine *coursework.Engine, ledger *enrollment.Service) {
	api := courseworkApi{engine: engine, ledger: ledger}
	staff := roleMiddleware(identity.RoleAdministrator, identity.RoleInstructor)

	// the /courses group belongs to the course API
	g.POST("/courses/:id/assignments", api.createAssignment, with(authed, staff)...)

	ag := g.Group("/assignments", authed...)
	ag.GET("/:id", api.retrieveAssignment)
	ag.POST("/:id/publish", api.publish, staff)
	ag.PUT("/:id/submission", api.submit, roleMiddleware(identity.RoleStudent))
	ag.GET("/:id/distributions", api.distributions, staff)

	dg := g.Group("/distributions", authed...)
	dg.PUT("/:id/grade", api.grade, staff)
}

// Handlers

func (api *courseworkApi) createAssignment(ctx echo.Context) error {
	courseID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data NewAssignmentRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignmentRequest")
	}
	if err = api.checkOwner(ctx, courseID); err != nil {
		return err
	}

	asg, dists, err := api.engine.CreateAssignment(ctx.Request().Context(), coursework.NewAssignment{
		CourseID:    courseID,
		Title:       data.Title,
		Description: data.Description,
		DueDate:     data.DueDate.Time,
		Publish:     data.Publish,
	})
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, NewAssignmentResponse{Assignment: asg, Distributions: dists})
}

// retrieveAssignment shows students the published assignments of their courses only,
// and staff the assignments of the courses they own.
func (api *courseworkApi) retrieveAssignment(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	reqCtx := ctx.Request().Context()
	if sess.Role() == identity.RoleStudent {
		studentID, _ := sess.UserID()
		asg, err := api.engine.StudentAssignment(reqCtx, id, studentID)
		if err != nil {
			return errors.Wrap(err, "finding assignment")
		}
		return ctx.JSON(http.StatusOK, asg)
	}

	asg, err := api.engine.GetAssignment(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	if err = api.checkOwner(ctx, asg.CourseID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *courseworkApi) publish(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	asg, err := api.engine.GetAssignment(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	if err = api.checkOwner(ctx, asg.CourseID); err != nil {
		return err
	}

	asg, err = api.engine.PublishAssignment(reqCtx, asg.ID)
	if err != nil {
		return errors.Wrap(err, "publishing assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *courseworkApi) submit(ctx echo.Context) error {
	asgID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data SubmissionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmissionRequest")
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	studentID, _ := sess.UserID()

	d, err := api.engine.SubmitAssignment(ctx.Request().Context(), asgID, studentID, data.Text)
	if err != nil {
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *courseworkApi) distributions(ctx echo.Context) error {
	asgID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	asg, err := api.engine.GetAssignment(reqCtx, asgID)
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	if err = api.checkOwner(ctx, asg.CourseID); err != nil {
		return err
	}

	dists, err := api.engine.ListDistributions(reqCtx, asg.ID)
	if err != nil {
		return errors.Wrap(err, "querying distributions")
	}
	if dists == nil {
		dists = []coursework.Distribution{}
	}
	return ctx.JSON(http.StatusOK, dists)
}

func (api *courseworkApi) grade(ctx echo.Context) error {
	distID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data coursework.Grade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Grade")
	}

	reqCtx := ctx.Request().Context()
	d, err := api.engine.GetDistribution(reqCtx, distID)
	if err != nil {
		return errors.Wrap(err, "finding distribution")
	}
	asg, err := api.engine.GetAssignment(reqCtx, d.AssignmentID)
	if err != nil {
		return errors.Wrap(err, "finding assignment")
	}
	if err = api.checkOwner(ctx, asg.CourseID); err != nil {
		return err
	}

	d, err = api.engine.GradeDistribution(reqCtx, d.ID, data)
	if err != nil {
		return errors.Wrap(err, "grading distribution")
	}
	return ctx.JSON(http.StatusOK, d)
}

// checkOwner allows administrators and the instructor teaching the course. Unknown courses are a 404.
func (api *courseworkApi) checkOwner(ctx echo.Context, courseID int) error {
	c, err := api.ledger.GetCourse(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	return checkCourseOwner(sess, c.InstructorID)
}
