package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/formatting"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/state"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const maxCreditLookups = 5

// HandleStart handles /start.
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.requireOperator(ctx, b, update) {
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Hi, %s!\n\n"+
			"This bot books physiotherapy sessions against a patient's prepaid credit.\n\n"+
			"/book - Book one or more sessions\n"+
			"/credits <name or phone> - Show remaining credit\n"+
			"/cancel - Abort the current booking\n"+
			"/help - Help",
		update.Message.From.FirstName,
	)

	h.sendMessage(ctx, b, update.Message.Chat.ID, welcomeText, nil)
}

// HandleHelp handles /help.
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.requireOperator(ctx, b, update) {
		return
	}

	helpText := "📚 How booking works:\n\n" +
		"1. /book and find the patient\n" +
		"2. Pick a paid package with sessions left\n" +
		"3. Pick the doctor and the physiotherapist\n" +
		"4. Enter start date, time and duration\n" +
		"5. Choose one-off or a recurrence (daily, weekdays, weekly)\n" +
		"6. For a recurrence enter the end date. It is capped at what the package still covers\n" +
		"7. Check the preview and confirm\n\n" +
		"Nothing is booked until you press Confirm."

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText, nil)
}

// HandleCancel handles /cancel.
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.requireOperator(ctx, b, update) {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Nothing to cancel.", nil)
		return
	}

	h.stateManager.ClearState(telegramID)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Booking cancelled. Nothing was booked.", nil)
}

// HandleBook handles /book and starts a fresh draft.
func (h *Handlers) HandleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.requireOperator(ctx, b, update) {
		return
	}

	telegramID := update.Message.From.ID
	h.stateManager.ClearState(telegramID)
	h.stateManager.SetState(telegramID, state.StatePatientSearch)

	h.logger.Info("Booking dialog started", zap.Int64("telegram_id", telegramID))

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"📝 New booking\n\nStep 1: send the patient's name, phone or email.\n\n/cancel to abort", nil)
}

// HandleCredits handles /credits <query>.
func (h *Handlers) HandleCredits(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.requireOperator(ctx, b, update) {
		return
	}
	chatID := update.Message.Chat.ID

	query := parseOperatorQuery(update.Message.Text)
	if query == "" {
		h.sendMessage(ctx, b, chatID, "Usage: /credits <patient name or phone>", nil)
		return
	}

	patients, err := h.directory.Search(ctx, model.DirectoryPatients, query)
	if err != nil {
		h.replySearchError(ctx, b, chatID, err)
		return
	}
	if len(patients) == 0 {
		h.sendMessage(ctx, b, chatID, "Nobody found.", nil)
		return
	}
	if len(patients) > maxCreditLookups {
		patients = patients[:maxCreditLookups]
	}

	var sb strings.Builder
	for _, patient := range patients {
		packages, err := h.credits.Available(ctx, patient.ID)
		if err != nil {
			h.sendError(ctx, b, chatID, formatting.RejectionMessage(err))
			return
		}

		fmt.Fprintf(&sb, "👤 %s\n", patient.DisplayName)
		if len(packages) == 0 {
			sb.WriteString("   no sessions left\n\n")
			continue
		}
		for _, pkg := range packages {
			fmt.Fprintf(&sb, "   %s\n", formatting.FormatPackage(pkg))
		}
		sb.WriteString("\n")
	}

	h.sendMessage(ctx, b, chatID, strings.TrimSpace(sb.String()), nil)
}

// HandleTextMessage routes free text to the current dialog step.
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	telegramID := update.Message.From.ID
	currentState := h.stateManager.GetState(telegramID)
	if currentState == state.StateNone {
		return
	}
	if !h.isOperator(telegramID) {
		return
	}

	h.logger.Debug("Dialog input",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(currentState)))

	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	switch currentState {
	case state.StatePatientSearch:
		h.offerSearchResults(ctx, b, chatID, model.DirectoryPatients, text)
	case state.StateDoctorSearch:
		h.offerSearchResults(ctx, b, chatID, model.DirectoryDoctors, text)
	case state.StatePhysioSearch:
		h.offerSearchResults(ctx, b, chatID, model.DirectoryPhysios, text)
	case state.StateStartDate:
		h.handleStartDate(ctx, b, chatID, telegramID, text)
	case state.StateTimeOfDay:
		h.handleTimeOfDay(ctx, b, chatID, telegramID, text)
	case state.StateDuration:
		h.handleDurationText(ctx, b, chatID, telegramID, text)
	case state.StateEndDate:
		h.handleEndDate(ctx, b, chatID, telegramID, text)
	case state.StatePackageChoice, state.StateRecurrence, state.StateConfirm:
		h.sendMessage(ctx, b, chatID, "Please use the buttons above, or /cancel.", nil)
	default:
		h.logger.Warn("Unknown state", zap.String("state", string(currentState)))
	}
}

func (h *Handlers) replySearchError(ctx context.Context, b *bot.Bot, chatID int64, err error) {
	if errors.Is(err, service.ErrQueryTooShort) {
		h.sendError(ctx, b, chatID, "❌ Type at least 2 characters.")
		return
	}
	h.logger.Error("Directory search failed", zap.Error(err))
	h.sendError(ctx, b, chatID, formatting.RejectionMessage(err))
}
