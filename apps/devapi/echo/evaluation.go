package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core/evaluation"
	"github.com/trainingcmd/portal/core/user"
)

type evaluationApi struct {
	svc *evaluation.Service
}

func registerEvaluationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *evaluation.Service) {
	api := evaluationApi{svc: svc}

	tg := g.Group("/admin/student-evaluation-templates", jwt, adminMiddleware())
	tg.GET("", api.queryTemplates)
	tg.POST("", api.createTemplate)

	g.POST("/student-evaluations", api.submit, jwt, roleMiddleware(user.RoleTeacher))
}

func (api *evaluationApi) queryTemplates(ctx echo.Context) error {
	tmpls, err := api.svc.ListTemplates(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing templates")
	}
	if tmpls == nil {
		tmpls = []evaluation.Template{}
	}
	return ctx.JSON(http.StatusOK, tmpls)
}

func (api *evaluationApi) createTemplate(ctx echo.Context) error {
	var data evaluation.NewTemplate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTemplate")
	}
	tmpl, err := api.svc.CreateTemplate(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating template")
	}
	return ctx.JSON(http.StatusCreated, tmpl)
}

func (api *evaluationApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data evaluation.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	ev, err := api.svc.Submit(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting evaluation")
	}
	return ctx.JSON(http.StatusCreated, ev)
}
