package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/setting"
	"github.com/trezcool/edutrack/core/user"
)

type settingApi struct {
	svc *setting.Service
}

func registerSettingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *setting.Service) {
	api := settingApi{svc: svc}

	sg := g.Group("/settings", jwt)
	sg.GET("", api.query)
	sg.PUT("", api.update, roleMiddleware(user.RoleAdmin))
	sg.GET("/:category", api.queryCategory)
}

type UpdateSettingsResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Settings setting.Grouped `json:"settings"`
}

func (api *settingApi) query(ctx echo.Context) error {
	all, err := api.svc.All(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying settings")
	}
	return ctx.JSON(http.StatusOK, all)
}

func (api *settingApi) queryCategory(ctx echo.Context) error {
	values, err := api.svc.ByCategory(ctx.Request().Context(), ctx.Param("category"))
	if err != nil {
		return errors.Wrap(err, "querying category settings")
	}
	return ctx.JSON(http.StatusOK, values)
}

func (api *settingApi) update(ctx echo.Context) error {
	var data setting.BulkUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkUpdate")
	}
	settings, err := api.svc.Update(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, UpdateSettingsResponse{
		Success:  true,
		Message:  "Settings updated successfully",
		Settings: settings,
	})
}
