package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/analytics"
	"github.com/trezcool/academia/core/identity"
)

type analyticsApi struct {
	agg *analytics.Aggregator
}

func registerAnalyticsAPI(g *echo.Group, authed []echo.MiddlewareFunc, agg *analytics.Aggregator) {
	api := analyticsApi{agg: agg}

	ag := g.Group("/analytics", with(authed, roleMiddleware(identity.RoleAdministrator, identity.RoleInstructor))...)
	ag.GET("/enrollments", api.enrollmentStatistics)
	ag.GET("/grades", api.gradeDistribution)
	ag.GET("/course-averages", api.courseAverages)
	ag.GET("/course-gpas", api.courseGPAs)
	ag.GET("/marks", api.marks)
}

// Handlers

func (api *analyticsApi) enrollmentStatistics(ctx echo.Context) error {
	stats, err := api.agg.EnrollmentStatistics(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing enrollment statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *analyticsApi) gradeDistribution(ctx echo.Context) error {
	dist, err := api.agg.GradeDistribution(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing grade distribution")
	}
	return ctx.JSON(http.StatusOK, dist)
}

func (api *analyticsApi) courseAverages(ctx echo.Context) error {
	avgs, err := api.agg.AverageGradesByCourse(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing course averages")
	}
	return ctx.JSON(http.StatusOK, avgs)
}

func (api *analyticsApi) courseGPAs(ctx echo.Context) error {
	gpas, err := api.agg.CourseGPAs(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing course GPAs")
	}
	return ctx.JSON(http.StatusOK, gpas)
}

func (api *analyticsApi) marks(ctx echo.Context) error {
	marks, err := api.agg.StudentCourseMarks(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing student course marks")
	}
	return ctx.JSON(http.StatusOK, marks)
}
