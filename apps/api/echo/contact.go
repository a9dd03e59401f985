package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/contact"
)

const contactSentMsg = "Your message has been sent. We will get back to you shortly."

type contactApi struct {
	svc *contact.Service
}

func registerContactAPI(g *echo.Group, svc *contact.Service) {
	api := contactApi{svc: svc}
	g.POST("/contact", api.submit)
}

func (api *contactApi) submit(ctx echo.Context) error {
	var data contact.Message
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to contact.Message")
	}
	if err := api.svc.Submit(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: contactSentMsg})
}
