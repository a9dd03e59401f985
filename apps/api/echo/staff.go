package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/staff"
)

type staffApi struct {
	svc *staff.Service
}

func registerStaffAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *staff.Service) {
	api := staffApi{svc: svc}

	sg := g.Group("/staff", jwt)
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
}

func (api *staffApi) query(ctx echo.Context) error {
	filter, err := staff.ParseQueryFilter(ctx.QueryParam)
	if err != nil {
		return err
	}
	members, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying staff")
	}
	return ctx.JSON(http.StatusOK, newDataResponse(members))
}

func (api *staffApi) retrieve(ctx echo.Context) error {
	id, ok := paramID(ctx)
	if !ok {
		return staff.ErrNotFound
	}
	member, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting staff")
	}
	return ctx.JSON(http.StatusOK, newDataResponse(member))
}
