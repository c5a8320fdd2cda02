package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.pinboard/internal/model"
	"uk.co.dudmesh.pinboard/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler translates domain errors into status codes. Storage failures
// are reported without detail.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message := statusFor(err)
	if code >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: message})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

func statusFor(err error) (int, string) {
	var httpErr *echo.HTTPError
	switch {
	case errors.Is(err, model.ErrorStorageFailure):
		return http.StatusServiceUnavailable, "service unavailable"
	case errors.As(err, &httpErr):
		return httpErr.Code, fmt.Sprint(httpErr.Message)
	}
	if message, ok := validation.Describe(err); ok {
		return http.StatusBadRequest, message
	}
	switch {
	case errors.Is(err, model.ErrorInvalidUserParams),
		errors.Is(err, model.ErrorPasswordTooShort),
		errors.Is(err, model.ErrorEmptyMessage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrorMessageTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, model.ErrorHandleTaken):
		return http.StatusConflict, model.ErrorHandleTaken.Error()
	case errors.Is(err, model.ErrorInvalidUsernameOrPassword):
		return http.StatusUnauthorized, model.ErrorInvalidUsernameOrPassword.Error()
	case errors.Is(err, model.ErrorInvalidToken):
		return http.StatusUnauthorized, model.ErrorInvalidToken.Error()
	case errors.Is(err, model.ErrorUserNotFound):
		return http.StatusNotFound, model.ErrorUserNotFound.Error()
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
