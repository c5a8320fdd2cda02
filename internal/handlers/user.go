package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.pinboard/internal/auth"
	"uk.co.dudmesh.pinboard/internal/model"
)

type loginParams struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func CreateUser(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.CreateUserParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		if err := c.Validate(params); err != nil {
			return err
		}
		user, err := userService.Create(c.Request().Context(), params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, user)
	}
}

func Login(userService UserService, secret string, ttl time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &loginParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		user, err := userService.Authenticate(c.Request().Context(), params.Handle, params.Password)
		if err != nil {
			return err
		}
		token, err := auth.GenerateToken(user.ID, secret, ttl)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
	}
}

func CurrentUser(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := userService.Fetch(c.Request().Context(), currentUserID(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, user)
	}
}
