package controller

import (
	"context"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/handlers"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// dialogIdleTimeout drops booking drafts an operator walked away from.
const dialogIdleTimeout = 30 * time.Minute

type BotController struct {
	bot          *bot.Bot
	handlers     *handlers.Handlers
	stateManager *state.Manager
	logger       *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	credits handlers.CreditLedger,
	scheduler handlers.Scheduler,
	directory handlers.Directory,
	operatorIDs []int64,
	logger *zap.Logger,
) *BotController {
	stateManager := state.NewManager()

	cmdHandlers := handlers.NewHandlers(
		credits,
		scheduler,
		directory,
		stateManager,
		operatorIDs,
		logger,
	)

	return &BotController{
		bot:          botInstance,
		handlers:     cmdHandlers,
		stateManager: stateManager,
		logger:       logger,
	}
}

// RegisterHandlers registers every command and the dialog handlers.
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/book", bot.MatchTypeExact, c.handlers.HandleBook)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/credits", bot.MatchTypePrefix, c.handlers.HandleCredits)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)

	// Free text drives the dialog steps
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handlers.HandleTextMessage)

	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.handlers.HandleCallbackQuery)

	return c.setCommands(ctx)
}

// setCommands sets the command menu shown by telegram clients.
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "book", Description: "📝 Book sessions"},
		{Command: "credits", Description: "💳 Remaining credit of a patient"},
		{Command: "cancel", Description: "✖️ Abort the current booking"},
		{Command: "help", Description: "❓ Help"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start runs the bot until ctx is cancelled.
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	go c.expireDialogs(ctx)
	c.bot.Start(ctx)
	return nil
}

func (c *BotController) expireDialogs(ctx context.Context) {
	ticker := time.NewTicker(dialogIdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.stateManager.ExpireIdle(dialogIdleTimeout); n > 0 {
				c.logger.Info("Expired idle booking dialogs", zap.Int("count", n))
			}
		}
	}
}
