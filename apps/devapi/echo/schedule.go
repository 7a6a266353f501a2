package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core/schedule"
	"github.com/trainingcmd/portal/core/user"
)

type scheduleApi struct {
	svc *schedule.Service
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *schedule.Service) {
	api := scheduleApi{svc: svc}

	g.GET("/teaching-schedules", api.queryOwn, jwt)

	sg := g.Group("/admin/teaching-schedules", jwt, adminMiddleware())
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

func (api *scheduleApi) list(ctx echo.Context, filter schedule.Filter) error {
	list, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing schedules")
	}
	if list == nil {
		list = []schedule.Schedule{}
	}
	return ctx.JSON(http.StatusOK, list)
}

// queryOwn lists the schedules of the calling teacher; other roles see every schedule.
func (api *scheduleApi) queryOwn(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var filter schedule.Filter
	if user.NormalizeRole(claims.Role) == user.RoleTeacher {
		filter.TeacherID = claims.Subject
	}
	return api.list(ctx, filter)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	return api.list(ctx, schedule.Filter{TeacherID: ctx.QueryParam("teacherId")})
}

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.Input
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to schedule.Input")
	}
	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding schedule")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	var data schedule.Input
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to schedule.Input")
	}
	s, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}
