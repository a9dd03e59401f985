package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/payment"
	"github.com/trezcool/edutrack/core/user"
)

type paymentApi struct {
	svc *payment.Service
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *payment.Service) {
	api := paymentApi{svc: svc}

	pg := g.Group("/payments", jwt, roleMiddleware(user.RoleAdmin, user.RoleStaff))
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.GET("/stats/summary", api.summary)
	pg.GET("/:id", api.retrieve)
	pg.PATCH("/:id/status", api.updateStatus)
}

type PaymentsResponse struct {
	Success    bool               `json:"success"`
	Data       []payment.Payment  `json:"data"`
	Pagination payment.Pagination `json:"pagination"`
}

func (api *paymentApi) query(ctx echo.Context) error {
	filter, err := payment.ParseQueryFilter(ctx.QueryParam)
	if err != nil {
		return err
	}
	pmts, page, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, PaymentsResponse{Success: true, Data: pmts, Pagination: page})
}

func (api *paymentApi) summary(ctx echo.Context) error {
	sum, err := api.svc.Summary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "summarizing payments")
	}
	return ctx.JSON(http.StatusOK, newDataResponse(sum))
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	id, ok := paramID(ctx)
	if !ok {
		return payment.ErrNotFound
	}
	pmt, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting payment")
	}
	return ctx.JSON(http.StatusOK, newDataResponse(pmt))
}

func (api *paymentApi) create(ctx echo.Context) error {
	var data payment.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	pmt, err := api.svc.Create(ctx.Request().Context(), data, contextUser(ctx).ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, newDataResponse(pmt))
}

func (api *paymentApi) updateStatus(ctx echo.Context) error {
	id, ok := paramID(ctx)
	if !ok {
		return payment.ErrNotFound
	}
	var data payment.StatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	pmt, err := api.svc.UpdateStatus(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newDataResponse(pmt))
}
