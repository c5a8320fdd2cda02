package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.pinboard/internal/service/password"
)

type changePasswordParams struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

type changePasswordResponse struct {
	Outcome           string     `json:"outcome"`
	AttemptsRemaining *int       `json:"attemptsRemaining,omitempty"`
	LockedUntil       *time.Time `json:"lockedUntil,omitempty"`
	RemainingHours    *int       `json:"remainingHours,omitempty"`
	RemainingDays     *int       `json:"remainingDays,omitempty"`
}

var passwordStatus = map[password.Outcome]int{
	password.Success:           http.StatusOK,
	password.Locked:            http.StatusLocked,
	password.InvalidCredential: http.StatusForbidden,
	password.RateLimited:       http.StatusTooManyRequests,
}

func ChangePassword(guard PasswordGuard, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &changePasswordParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		if err := c.Validate(params); err != nil {
			return err
		}

		result, err := guard.AttemptPasswordChange(c.Request().Context(), currentUserID(c), params.CurrentPassword, params.NewPassword, now())
		if err != nil {
			return err
		}

		response := changePasswordResponse{Outcome: result.Outcome.String()}
		switch result.Outcome {
		case password.Success, password.InvalidCredential:
			response.AttemptsRemaining = &result.AttemptsRemaining
		case password.Locked, password.RateLimited:
			response.LockedUntil = result.LockedUntil
			response.RemainingHours = &result.RemainingHours
			response.RemainingDays = &result.RemainingDays
		}
		return c.JSON(passwordStatus[result.Outcome], response)
	}
}
