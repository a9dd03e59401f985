package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	healthOK       = "ok"
	healthDegraded = "degraded"
	databaseUp     = "up"
	databaseDown   = "down"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func healthHandler(statusCheck func(ctx context.Context) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := statusCheck(ctx.Request().Context()); err != nil {
			ctx.Logger().Warnf("health check: %v", err)
			return ctx.JSON(http.StatusServiceUnavailable, HealthResponse{Status: healthDegraded, Database: databaseDown})
		}
		return ctx.JSON(http.StatusOK, HealthResponse{Status: healthOK, Database: databaseUp})
	}
}
