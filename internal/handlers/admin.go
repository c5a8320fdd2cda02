package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.pinboard/internal/model"
)

type setVerifiedParams struct {
	Verified *bool `json:"verified"`
}

// SetVerified moves a user between quota tiers.
func SetVerified(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &setVerifiedParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		if params.Verified == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "verified is required")
		}
		user, err := userService.SetVerified(c.Request().Context(), model.UserID(c.Param("id")), *params.Verified)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, user)
	}
}

func Health(health HealthChecker) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := health.Ping(c.Request().Context()); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
