package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"panel/internal/catalog"
	"panel/internal/flow"
	"panel/internal/ledger"
	"panel/internal/storage"
)

// Bot represents the Telegram bot wrapper
type Bot struct {
	api     *tgbotapi.BotAPI
	ledger  *ledger.Ledger
	catalog *catalog.Catalog
	flows   *flow.Tracker
	store   storage.Storage // settings reads/writes
	admins  map[int64]bool
	logger  *zap.Logger

	// Per-user update queues; see Dispatch.
	queueMu sync.Mutex
	queues  map[int64]*updateQueue
}

// How many history entries the "My Orders" view shows.
const orderHistoryLimit = 10

// defaultStartMessage is shown when no start message has been configured.
const defaultStartMessage = "👋 Welcome to the panel!\n\nManage your balance, buy services, and grow your account 🚀"
