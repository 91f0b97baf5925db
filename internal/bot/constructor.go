package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"panel/internal/catalog"
	"panel/internal/flow"
	"panel/internal/ledger"
	"panel/internal/storage"
)

// NewBot creates a new Telegram bot
func NewBot(token string, ldg *ledger.Ledger, cat *catalog.Catalog, flows *flow.Tracker, store storage.Storage, adminIDs []int64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	admins := make(map[int64]bool)
	for _, id := range adminIDs {
		admins[id] = true
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	return &Bot{
		api:     api,
		ledger:  ldg,
		catalog: cat,
		flows:   flows,
		store:   store,
		admins:  admins,
		logger:  logger,
		queues:  make(map[int64]*updateQueue),
	}, nil
}

// GetAPI returns the bot API for testing
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}
