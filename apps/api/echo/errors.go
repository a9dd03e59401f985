package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/backup"
	"github.com/trezcool/edutrack/core/payment"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")

	validationFailedMsg = "validation failed"
)

// ErrorResponse is the body of every failed request.
// Error holds the underlying error and is only set in debug mode.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		res := ErrorResponse{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				origErr = echo.NewHTTPError(http.StatusUnauthorized, origErr.Message)
			} else if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
			code = origErr.Code
			res.Message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			res.Message = validationFailedMsg
			res.Errors = core.TranslateValidationErrors(origErr, translator)
		case *core.ValidationError:
			code = http.StatusBadRequest
			res.Message = origErr.Error()
			if origErr.Fields != nil {
				res.Message = validationFailedMsg
				res.Errors = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					res.Errors[fErr.Field] = fErr.Error
				}
			}
		default:
			switch {
			case core.IsNotFound(err):
				code = http.StatusNotFound
				res.Message = notFoundMessage(err)
			case cause == payment.ErrInvalidTransition:
				code = http.StatusConflict
				res.Message = err.Error()
			case cause == backup.ErrNotRestorable, cause == backup.ErrCorrupted:
				code = http.StatusConflict
				res.Message = cause.Error()
			default: // any other error is a server error
				res.Message = http.StatusText(http.StatusInternalServerError)
				logger.Error(res.Message, errors.Wrap(err, res.Message), contextUser(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			res.Error = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// notFoundMessage keeps the "<resource>: not found" part of err, dropping the wrapping context.
func notFoundMessage(err error) string {
	type causer interface{ Cause() error }
	for {
		c, ok := err.(causer)
		if !ok {
			return err.Error()
		}
		if c.Cause() == core.ErrNotFound {
			return err.Error()
		}
		err = c.Cause()
	}
}
