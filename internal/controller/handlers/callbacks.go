package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/formatting"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/keyboard"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/state"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// callbackChatID returns the chat the pressed button belongs to.
func callbackChatID(cb *models.CallbackQuery) int64 {
	if cb.Message.Message != nil {
		return cb.Message.Message.Chat.ID
	}
	if cb.Message.InaccessibleMessage != nil {
		return cb.Message.InaccessibleMessage.Chat.ID
	}
	return cb.From.ID
}

// HandleCallbackQuery routes inline button presses of the booking dialog.
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	telegramID := cb.From.ID
	if !h.isOperator(telegramID) {
		h.answerCallback(ctx, b, cb.ID, "This bot is for clinic staff only.", true)
		return
	}

	data := cb.Data
	chatID := callbackChatID(cb)

	h.logger.Info("Routing callback",
		zap.String("data", data),
		zap.Int64("telegram_id", telegramID))

	switch {
	case data == keyboard.CancelData:
		h.stateManager.ClearState(telegramID)
		h.answerCallback(ctx, b, cb.ID, "", false)
		h.sendMessage(ctx, b, chatID, "✅ Booking cancelled. Nothing was booked.", nil)
	case strings.HasPrefix(data, keyboard.PatientPrefix):
		h.onPatientChosen(ctx, b, cb, chatID)
	case strings.HasPrefix(data, keyboard.PackagePrefix):
		h.onPackageChosen(ctx, b, cb, chatID)
	case strings.HasPrefix(data, keyboard.DoctorPrefix):
		h.onDoctorChosen(ctx, b, cb, chatID)
	case strings.HasPrefix(data, keyboard.PhysioPrefix):
		h.onPhysioChosen(ctx, b, cb, chatID)
	case strings.HasPrefix(data, keyboard.DurationPrefix):
		h.onDurationChosen(ctx, b, cb, chatID)
	case strings.HasPrefix(data, keyboard.RulePrefix):
		h.onRuleChosen(ctx, b, cb, chatID)
	case strings.HasPrefix(data, keyboard.ConfirmPrefix):
		h.onConfirm(ctx, b, cb, chatID)
	default:
		h.answerCallback(ctx, b, cb.ID, "Unknown action", false)
	}
}

// expectState rejects presses on buttons from an earlier step.
func (h *Handlers) expectState(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery, want state.UserState) bool {
	if h.stateManager.GetState(cb.From.ID) != want {
		h.answerCallback(ctx, b, cb.ID, "This button is no longer active. Start again with /book.", true)
		return false
	}
	return true
}

// pickEntry resolves a directory button to its entry.
func (h *Handlers) pickEntry(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery, kind model.DirectoryKind, prefix string) (*model.DirectoryEntry, bool) {
	id, err := keyboard.ParseID(cb.Data, prefix)
	if err != nil {
		h.answerCallback(ctx, b, cb.ID, "Invalid selection", true)
		return nil, false
	}

	entry, err := h.directory.Get(ctx, kind, id)
	if err != nil {
		h.logger.Error("Failed to load directory entry", zap.String("kind", string(kind)), zap.Int64("id", id), zap.Error(err))
		h.answerCallback(ctx, b, cb.ID, "Something went wrong, try again", true)
		return nil, false
	}
	if entry == nil {
		h.answerCallback(ctx, b, cb.ID, "Not found", true)
		return nil, false
	}

	h.answerCallback(ctx, b, cb.ID, "", false)
	return entry, true
}

func (h *Handlers) onPatientChosen(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery, chatID int64) {
	if !h.expectState(ctx, b, cb, state.StatePatientSearch) {
		return
	}
	patient, ok := h.pickEntry(ctx, b, cb, model.DirectoryPatients, keyboard.PatientPrefix)
	if !ok {
		return
	}

	h.stateManager.UpdateDraft(cb.From.ID, func(d *state.Draft) {
		d.PatientID = patient.ID
		d.PatientName = patient.DisplayName
	})
	h.offerPackages(ctx, b, chatID, cb.From.ID, patient.ID)
}

func (h *Handlers) onPackageChosen(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery, chatID int64) {
	if !h.expectState(ctx, b, cb, state.StatePackageChoice) {
		return
	}
	packageID, err := keyboard.ParseID(cb.Data, keyboard.PackagePrefix)
	if err != nil {
		h.answerCallback(ctx, b, cb.ID, "Invalid selection", true)
		return
	}

	draft, _ := h.stateManager.Draft(cb.From.ID)
	pkg, err := h.credits.Package(ctx, draft.PatientID, packageID)
	if err != nil {
		h.stateManager.ClearState(cb.From.ID)
		h.answerCallback(ctx, b, cb.ID, "", false)
		h.sendError(ctx, b, chatID, formatting.RejectionMessage(err))
		return
	}
	if pkg == nil {
		h.answerCallback(ctx, b, cb.ID, "Package not found for this patient", true)
		return
	}
	if !pkg.HasCredit() {
		h.answerCallback(ctx, b, cb.ID, "This package has no sessions left", true)
		return
	}
	h.answerCallback(ctx, b, cb.ID, "", false)

	h.stateManager.UpdateDraft(cb.From.ID, func(d *state.Draft) {
		d.PackageID = pkg.ID
		d.Remaining = pkg.Remaining()
	})
	h.stateManager.SetState(cb.From.ID, state.StateDoctorSearch)
	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"✅ Package #%d, %s left.\n\nStep 3: send the referring doctor's name.",
		pkg.ID, formatting.PluralizeSessions(pkg.Remaining())), nil)
}

func (h *Handlers) onDoctorChosen(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery, chatID int64) {
	if !h.expectState(ctx, b, cb, state.StateDoctorSearch) {
		return
	}
	doctor, ok := h.pickEntry(ctx, b, cb, model.DirectoryDoctors, keyboard.DoctorPrefix)
	if !ok {
		return
	}

	h.stateManager.UpdateDraft(cb.From.ID, func(d *state.Draft) {
		d.DoctorID = doctor.ID
		d.DoctorName = doctor.DisplayName
	})
	h.stateManager.SetState(cb.From.ID, state.StatePhysioSearch)
	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"✅ Doctor: %s\n\nStep 4: send the physiotherapist's name.", doctor.DisplayName), nil)
}

func (h *Handlers) onPhysioChosen(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery, chatID int64) {
	if !h.expectState(ctx, b, cb, state.StatePhysioSearch) {
		return
	}
	physio, ok := h.pickEntry(ctx, b, cb, model.DirectoryPhysios, keyboard.PhysioPrefix)
	if !ok {
		return
	}

	h.stateManager.UpdateDraft(cb.From.ID, func(d *state.Draft) {
		d.PhysioID = physio.ID
		d.PhysioName = physio.DisplayName
	})
	h.stateManager.SetState(cb.From.ID, state.StateStartDate)
	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"✅ Physio: %s\n\nStep 5: first session date (DD.MM.YYYY).", physio.DisplayName), nil)
}

func (h *Handlers) onDurationChosen(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery, chatID int64) {
	if !h.expectState(ctx, b, cb, state.StateDuration) {
		return
	}
	minutes, err := strconv.Atoi(strings.TrimPrefix(cb.Data, keyboard.DurationPrefix))
	if err != nil || minutes <= 0 {
		h.answerCallback(ctx, b, cb.ID, "Invalid duration", true)
		return
	}

	h.answerCallback(ctx, b, cb.ID, "", false)
	h.setDuration(ctx, b, chatID, cb.From.ID, minutes)
}

func (h *Handlers) onRuleChosen(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery, chatID int64) {
	if !h.expectState(ctx, b, cb, state.StateRecurrence) {
		return
	}
	value := strings.TrimPrefix(cb.Data, keyboard.RulePrefix)
	h.answerCallback(ctx, b, cb.ID, "", false)

	if value == keyboard.RuleOnce {
		h.stateManager.UpdateDraft(cb.From.ID, func(d *state.Draft) {
			d.IsRecurring = false
			d.Rule = ""
			d.EndDate = d.StartDate
		})
		h.showConfirmation(ctx, b, chatID, cb.From.ID)
		return
	}

	rule := model.RecurrenceRule(value)
	if !rule.IsValid() {
		h.sendError(ctx, b, chatID, "❌ Unknown recurrence.")
		return
	}

	h.stateManager.UpdateDraft(cb.From.ID, func(d *state.Draft) {
		d.IsRecurring = true
		d.Rule = rule
	})
	h.stateManager.SetState(cb.From.ID, state.StateEndDate)

	draft, _ := h.stateManager.Draft(cb.From.ID)
	check, err := h.scheduler.ClampEndDate(ctx, draft.PatientID, draft.PackageID, draft.StartDate, draft.StartDate, rule)
	if err != nil {
		h.stateManager.ClearState(cb.From.ID)
		h.sendError(ctx, b, chatID, formatting.RejectionMessage(err))
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"Step 9: last session date (DD.MM.YYYY).\n\nThe package covers up to %s.",
		formatting.FormatDate(check.MaxEndDate)), nil)
}

func (h *Handlers) onConfirm(ctx context.Context, b *bot.Bot, cb *models.CallbackQuery, chatID int64) {
	token := strings.TrimPrefix(cb.Data, keyboard.ConfirmPrefix)
	draft, ok := h.stateManager.Draft(cb.From.ID)
	if !ok || draft.SubmitToken != token {
		h.answerCallback(ctx, b, cb.ID, "This preview is out of date. Start again with /book.", true)
		return
	}
	h.answerCallback(ctx, b, cb.ID, "Booking…", false)

	receipt, err := h.scheduler.Book(ctx, draft.Request(), draft.PackageID, token)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateSubmit) {
			return
		}
		h.logger.Info("Booking not committed",
			zap.Int64("telegram_id", cb.From.ID),
			zap.Int64("package_id", draft.PackageID),
			zap.Error(err))
		h.stateManager.ClearState(cb.From.ID)
		h.sendError(ctx, b, chatID, formatting.RejectionMessage(err)+"\n\nStart again with /book.")
		return
	}

	h.stateManager.ClearState(cb.From.ID)
	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"✅ Booked %s for %s.\n\nReference: %s\nSessions left on package #%d: %d",
		formatting.PluralizeSessions(len(receipt.AppointmentIDs)),
		draft.PatientName,
		receipt.BatchID.String(),
		receipt.PackageID,
		receipt.Remaining,
	), nil)
}
