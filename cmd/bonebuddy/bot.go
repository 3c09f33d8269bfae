package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller"
	"github.com/go-telegram/bot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the operator booking bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot()
		},
	}
}

func runBot() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.cfg.RequireTelegram(); err != nil {
		return err
	}

	b, err := bot.New(rt.cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	if len(rt.cfg.OperatorIDs) == 0 {
		rt.logger.Warn("BOT_OPERATOR_IDS not set, every Telegram user can book")
	}

	ctrl := controller.NewBotController(b, rt.credits, rt.scheduler, rt.directory, rt.cfg.OperatorIDs, rt.logger)
	if err := ctrl.RegisterHandlers(ctx); err != nil {
		// The command menu is cosmetic; the bot still works without it
		rt.logger.Warn("Bot started without command menu", zap.Error(err))
	}

	return ctrl.Start(ctx)
}
