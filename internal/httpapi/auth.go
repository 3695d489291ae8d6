package httpapi

import (
	"encoding/json"

	"github.com/sponsorlink/dealcore/internal/auth"
	"github.com/sponsorlink/dealcore/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

// telegramWebAppUser mirrors the "user" field Telegram embeds as a JSON
// string inside initData.
type telegramWebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TelegramAuth exchanges a Telegram WebApp initData payload for a JWT. It
// upserts the user row so the first authenticated call also registers the
// account.
func (a *API) TelegramAuth(c *fiber.Ctx) error {
	var req authTelegramRequest
	if err := c.BodyParser(&req); err != nil || req.InitData == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_failed", Message: "init_data is required"})
	}

	vals, err := auth.ValidateTelegramWebAppData(req.InitData, a.cfg.BotToken, a.cfg.InitDataMaxAge)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "auth_failed", Message: err.Error()})
	}

	var tgUser telegramWebAppUser
	if err := json.Unmarshal([]byte(vals.Get("user")), &tgUser); err != nil || tgUser.ID == 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "auth_failed", Message: "missing or malformed user field"})
	}

	var username, firstName, lastName *string
	if tgUser.Username != "" {
		username = &tgUser.Username
	}
	if tgUser.FirstName != "" {
		firstName = &tgUser.FirstName
	}
	if tgUser.LastName != "" {
		lastName = &tgUser.LastName
	}

	user, err := a.users.UpsertByTelegramID(c.Context(), tgUser.ID, username, firstName, lastName)
	if err != nil {
		return writeErr(c, err)
	}

	token, err := auth.GenerateJWT(a.cfg.JWTSecret, user.ID, user.TelegramUserID, a.cfg.JWTExpiration)
	if err != nil {
		return writeErr(c, err)
	}

	return c.JSON(authResponse{Token: token, User: user})
}

func (a *API) GetMe(c *fiber.Ctx) error {
	user, err := a.users.GetByID(c.Context(), middleware.GetUserID(c))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(DataResponse{Data: user})
}
