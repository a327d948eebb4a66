package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/identity"
)

type courseApi struct {
	ledger *enrollment.Service
}

func registerCourseAPI(g *echo.Group, authed []echo.MiddlewareFunc, ledger *enrollment.Service) {
	api := courseApi{ledger: ledger}
	admin := roleMiddleware(identity.RoleAdministrator)
	staff := roleMiddleware(identity.RoleAdministrator, identity.RoleInstructor)

	cg := g.Group("/courses", authed...)
	cg.GET("", api.query)
	cg.POST("", api.create, admin)
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/enrollments", api.enroll, admin)
	cg.GET("/:id/enrollments", api.courseEnrollments, staff)

	eg := g.Group("/enrollments", authed...)
	eg.GET("/mine", api.myEnrollments, roleMiddleware(identity.RoleStudent))
	eg.PUT("/:id/grade", api.recordGrade, staff)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data enrollment.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	c, err := api.ledger.AddCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(enrollment.CourseFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []enrollment.Course{})
	}
	courses, err := api.ledger.ListCourses(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []enrollment.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	c, err := api.ledger.GetCourse(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	courseID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data EnrollRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}

	enr, err := api.ledger.Enroll(ctx.Request().Context(), data.StudentID, courseID, data.StartDate.Time, data.EndDate.Time)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) courseEnrollments(ctx echo.Context) error {
	courseID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	c, err := api.ledger.GetCourse(reqCtx, courseID)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	if err = api.checkOwner(ctx, c); err != nil {
		return err
	}

	enrs, err := api.ledger.CourseEnrollments(reqCtx, c.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *courseApi) myEnrollments(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	userID, _ := sess.UserID()
	enrs, err := api.ledger.StudentEnrollments(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *courseApi) recordGrade(ctx echo.Context) error {
	enrID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data GradeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeRequest")
	}
	if data.Grade != nil && *data.Grade == "" {
		data.Grade = nil // clears the grade
	}

	reqCtx := ctx.Request().Context()
	enr, err := api.ledger.GetEnrollment(reqCtx, enrID)
	if err != nil {
		return errors.Wrap(err, "finding enrollment")
	}
	c, err := api.ledger.GetCourse(reqCtx, enr.CourseID)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	if err = api.checkOwner(ctx, c); err != nil {
		return err
	}

	enr, err = api.ledger.RecordGrade(reqCtx, enr.ID, data.Grade)
	if err != nil {
		return errors.Wrap(err, "recording grade")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *courseApi) checkOwner(ctx echo.Context, c enrollment.Course) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	return checkCourseOwner(sess, c.InstructorID)
}
