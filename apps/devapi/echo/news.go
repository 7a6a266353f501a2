package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trainingcmd/portal/core/news"
	"github.com/trainingcmd/portal/core/user"
)

const defaultNewsLimit = 20

type newsApi struct {
	svc    *news.Service
	usrSvc *user.Service
}

func registerNewsAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *news.Service, usrSvc *user.Service) {
	api := newsApi{svc: svc, usrSvc: usrSvc}

	g.GET("/news", api.query)
	g.POST("/admin/news", api.publish, jwt, adminMiddleware())
}

func (api *newsApi) query(ctx echo.Context) error {
	limit := defaultNewsLimit
	if v := ctx.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}
	items, err := api.svc.Latest(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "listing news")
	}
	if items == nil {
		items = []news.Item{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *newsApi) publish(ctx echo.Context) error {
	acc, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data PublishRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PublishRequest")
	}
	it, err := api.svc.Publish(ctx.Request().Context(), data.Title, data.Body, acc.DisplayName())
	if err != nil {
		return errors.Wrap(err, "publishing news")
	}
	return ctx.JSON(http.StatusCreated, it)
}

type PublishRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
