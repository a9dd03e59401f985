package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

type (
	SuccessResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	DataResponse struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}
)

func newDataResponse(data interface{}) DataResponse {
	return DataResponse{Success: true, Data: data}
}

// paramID parses the ":id" path param; ok is false for anything but a positive integer.
func paramID(ctx echo.Context) (id int, ok bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	return id, err == nil && id > 0
}
