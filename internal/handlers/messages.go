package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.pinboard/internal/model"
)

type sendMessageParams struct {
	ConversationID model.ConversationID `json:"conversationId"`
	Text           string               `json:"text"`
}

func SendMessage(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &sendMessageParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		if params.ConversationID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "conversationId is required")
		}
		message, err := chatService.Send(c.Request().Context(), currentUserID(c), params.ConversationID, params.Text)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, message)
	}
}

func GetUsage(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		usage, err := chatService.Usage(c.Request().Context(), currentUserID(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, usage)
	}
}

// ListConversation has no membership check: any signed in user can read any
// conversation id.
func ListConversation(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 0
		if raw := c.QueryParam("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
			}
			limit = n
		}
		messages, err := chatService.Conversation(c.Request().Context(), model.ConversationID(c.Param("id")), limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, messages)
	}
}
