package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.pinboard/internal/model"
	"uk.co.dudmesh.pinboard/internal/service/password"
	"uk.co.dudmesh.pinboard/internal/service/quota"
	"uk.co.dudmesh.pinboard/internal/validation"
)

type UserService interface {
	Create(ctx context.Context, params *model.CreateUserParams) (*model.User, error)
	Fetch(ctx context.Context, userID model.UserID) (*model.User, error)
	Authenticate(ctx context.Context, handle, password string) (*model.User, error)
	SetVerified(ctx context.Context, userID model.UserID, verified bool) (*model.User, error)
}

type ChatService interface {
	Send(ctx context.Context, senderID model.UserID, conversationID model.ConversationID, text string) (*model.StoredMessage, error)
	Usage(ctx context.Context, userID model.UserID) (quota.UsageReport, error)
	Conversation(ctx context.Context, conversationID model.ConversationID, limit int) ([]model.StoredMessage, error)
}

type PasswordGuard interface {
	AttemptPasswordChange(ctx context.Context, userID model.UserID, currentPassword, newPassword string, now time.Time) (password.Result, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Config struct {
	JWTSecret  string
	TokenTTL   time.Duration
	AdminToken string
	Clock      func() time.Time
}

// Register mounts every API route on server. Request metrics are installed
// by the caller so that tests can build several servers in one process.
func Register(server *echo.Echo, config Config, users UserService, chat ChatService, guard PasswordGuard, health HealthChecker) {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	server.HTTPErrorHandler = ErrorHandler
	server.Validator = validation.New()

	requireUser := RequireUser(config.JWTSecret)

	server.GET("/healthz", Health(health))

	server.POST("/local/user", CreateUser(users))
	server.POST("/local/login", Login(users, config.JWTSecret, config.TokenTTL))
	server.GET("/local/user/me", CurrentUser(users), requireUser)
	server.PUT("/local/user/password", ChangePassword(guard, config.Clock), requireUser)

	server.POST("/messages", SendMessage(chat), requireUser)
	server.GET("/messages/usage", GetUsage(chat), requireUser)
	server.GET("/conversations/:id/messages", ListConversation(chat), requireUser)

	admin := server.Group("/admin", RequireAdmin(config.AdminToken))
	admin.PUT("/user/:id/verified", SetVerified(users))
}
