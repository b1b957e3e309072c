// internal/handler/telegram.go
package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"studio-settlement/internal/bot"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HeaderTelegramSecret carries the secret_token registered with setWebhook.
const HeaderTelegramSecret = "X-Telegram-Bot-Api-Secret-Token"

// TelegramWebhook godoc
// @Summary Telegram update webhook
// @Tags telegram
// @Accept json
// @Param X-Telegram-Bot-Api-Secret-Token header string true "Webhook secret"
// @Success 200
// @Failure 401
// @Router /telegram [post]
func TelegramWebhook(b *bot.Handler, api bot.Sender, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(HeaderTelegramSecret)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			slog.Warn("telegram update rejected", "client_ip", c.ClientIP())
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			slog.Error("telegram update parse failed", "error", err)
			c.Status(http.StatusBadRequest)
			return
		}
		b.HandleUpdate(c.Request.Context(), api, update)
		c.Status(http.StatusOK)
	}
}
