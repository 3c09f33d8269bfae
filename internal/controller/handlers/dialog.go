package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/formatting"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/keyboard"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/preview"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/state"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/scheduling"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var searchPrefixes = map[model.DirectoryKind]string{
	model.DirectoryPatients: keyboard.PatientPrefix,
	model.DirectoryDoctors:  keyboard.DoctorPrefix,
	model.DirectoryPhysios:  keyboard.PhysioPrefix,
}

// offerSearchResults searches the directory and offers the hits as buttons.
func (h *Handlers) offerSearchResults(ctx context.Context, b *bot.Bot, chatID int64, kind model.DirectoryKind, query string) {
	entries, err := h.directory.Search(ctx, kind, query)
	if err != nil {
		h.replySearchError(ctx, b, chatID, err)
		return
	}
	if len(entries) == 0 {
		h.sendMessage(ctx, b, chatID, "Nobody found. Try another name or phone.", nil)
		return
	}

	buttons := make([]models.InlineKeyboardButton, 0, len(entries))
	for _, e := range entries {
		label := e.DisplayName
		if e.Contact != "" {
			label += " · " + e.Contact
		}
		buttons = append(buttons, keyboard.Button(label, keyboard.Data(searchPrefixes[kind], e.ID)))
	}

	kb := keyboard.NewBuilder().Grid(1, buttons...).Cancel().Build()
	h.sendMessage(ctx, b, chatID, "Pick one:", kb)
}

// offerPackages lists the patient's packages that still have sessions.
func (h *Handlers) offerPackages(ctx context.Context, b *bot.Bot, chatID, telegramID, patientID int64) {
	packages, err := h.credits.Available(ctx, patientID)
	if err != nil {
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, formatting.RejectionMessage(err))
		return
	}
	if len(packages) == 0 {
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, "❌ This patient has no sessions left on any paid package.")
		return
	}

	buttons := make([]models.InlineKeyboardButton, 0, len(packages))
	for _, pkg := range packages {
		buttons = append(buttons, keyboard.Button(formatting.FormatPackage(pkg), keyboard.Data(keyboard.PackagePrefix, pkg.ID)))
	}

	h.stateManager.SetState(telegramID, state.StatePackageChoice)
	kb := keyboard.NewBuilder().Grid(1, buttons...).Cancel().Build()
	h.sendMessage(ctx, b, chatID, "Step 2: pick the package to book against.", kb)
}

func (h *Handlers) handleStartDate(ctx context.Context, b *bot.Bot, chatID, telegramID int64, text string) {
	start, err := parseDate(text)
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ "+err.Error())
		return
	}

	h.stateManager.UpdateDraft(telegramID, func(d *state.Draft) { d.StartDate = start })
	h.stateManager.SetState(telegramID, state.StateTimeOfDay)
	h.sendMessage(ctx, b, chatID,
		fmt.Sprintf("✅ Start: %s\n\nStep 6: session time, 24h HH:MM (e.g. 09:30).", formatting.FormatDate(start)), nil)
}

func (h *Handlers) handleTimeOfDay(ctx context.Context, b *bot.Bot, chatID, telegramID int64, text string) {
	if _, _, err := scheduling.ParseTimeOfDay(text); err != nil {
		h.sendError(ctx, b, chatID, "❌ Time must be HH:MM in 24h format, e.g. 09:30 or 17:00.")
		return
	}

	h.stateManager.UpdateDraft(telegramID, func(d *state.Draft) { d.TimeOfDay = text })
	h.stateManager.SetState(telegramID, state.StateDuration)

	kb := keyboard.NewBuilder().
		Row(
			keyboard.Button("30 min", keyboard.DurationPrefix+"30"),
			keyboard.Button("45 min", keyboard.DurationPrefix+"45"),
			keyboard.Button("60 min", keyboard.DurationPrefix+"60"),
		).
		Cancel().
		Build()
	h.sendMessage(ctx, b, chatID, "Step 7: session length. Pick one or type minutes.", kb)
}

func (h *Handlers) handleDurationText(ctx context.Context, b *bot.Bot, chatID, telegramID int64, text string) {
	minutes, err := parseDuration(text)
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ "+err.Error())
		return
	}
	h.setDuration(ctx, b, chatID, telegramID, minutes)
}

func (h *Handlers) setDuration(ctx context.Context, b *bot.Bot, chatID, telegramID int64, minutes int) {
	draft := h.stateManager.UpdateDraft(telegramID, func(d *state.Draft) { d.DurationMinutes = minutes })
	h.stateManager.SetState(telegramID, state.StateRecurrence)

	hint := func(rule model.RecurrenceRule) string {
		return formatting.FormatDate(scheduling.MaxEndDate(draft.StartDate, rule, draft.Remaining))
	}

	text := fmt.Sprintf(
		"Step 8: how often?\n\n"+
			"%s left on the package, so the latest end date is:\n"+
			"• daily: %s\n• weekdays: %s\n• weekly: %s",
		formatting.PluralizeSessions(draft.Remaining),
		hint(model.RecurrenceDaily),
		hint(model.RecurrenceWeekdays),
		hint(model.RecurrenceWeekly),
	)

	kb := keyboard.NewBuilder().
		Row(keyboard.Button("One-off", keyboard.RulePrefix+keyboard.RuleOnce)).
		Row(
			keyboard.Button("Daily", keyboard.RulePrefix+string(model.RecurrenceDaily)),
			keyboard.Button("Weekdays", keyboard.RulePrefix+string(model.RecurrenceWeekdays)),
			keyboard.Button("Weekly", keyboard.RulePrefix+string(model.RecurrenceWeekly)),
		).
		Cancel().
		Build()
	h.sendMessage(ctx, b, chatID, text, kb)
}

func (h *Handlers) handleEndDate(ctx context.Context, b *bot.Bot, chatID, telegramID int64, text string) {
	end, err := parseDate(text)
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ "+err.Error())
		return
	}

	draft, _ := h.stateManager.Draft(telegramID)
	if end.Before(draft.StartDate) {
		h.sendError(ctx, b, chatID, "❌ End date cannot be before the start date. Try again:")
		return
	}

	check, err := h.scheduler.ClampEndDate(ctx, draft.PatientID, draft.PackageID, draft.StartDate, end, draft.Rule)
	if err != nil {
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, formatting.RejectionMessage(err))
		return
	}

	h.stateManager.UpdateDraft(telegramID, func(d *state.Draft) {
		d.EndDate = check.EndDate
		d.Remaining = check.Remaining
	})

	if check.Clamped {
		h.sendMessage(ctx, b, chatID, fmt.Sprintf(
			"ℹ️ End date moved to %s: the package only covers %s.",
			formatting.FormatDate(check.EndDate), formatting.PluralizeSessions(check.Remaining)), nil)
	}

	h.showConfirmation(ctx, b, chatID, telegramID)
}

// showConfirmation previews the draft and asks for confirmation.
func (h *Handlers) showConfirmation(ctx context.Context, b *bot.Bot, chatID, telegramID int64) {
	draft := h.stateManager.UpdateDraft(telegramID, func(d *state.Draft) { d.SubmitToken = uuid.NewString() })
	pv := h.scheduler.Preview(ctx, draft.Request())

	if len(pv.Slots) == 0 {
		h.stateManager.SetState(telegramID, state.StateEndDate)
		h.sendError(ctx, b, chatID, "❌ No sessions fall within these dates for the chosen recurrence. Send another end date:")
		return
	}

	h.stateManager.SetState(telegramID, state.StateConfirm)

	title := fmt.Sprintf("%s with %s", draft.PatientName, draft.PhysioName)
	if img, err := preview.GenerateImage(title, pv.Slots, pv.Clashes); err == nil {
		_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: chatID,
			Photo:  &models.InputFileUpload{Filename: "preview.png", Data: bytes.NewReader(img)},
		})
		if err != nil {
			h.logger.Warn("Failed to send preview image", zap.Error(err))
		}
	} else {
		h.logger.Warn("Failed to render preview image", zap.Error(err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Check the booking\n\n")
	fmt.Fprintf(&sb, "Patient: %s\nDoctor: %s\nPhysio: %s\n", draft.PatientName, draft.DoctorName, draft.PhysioName)
	fmt.Fprintf(&sb, "Package: #%d (%s left)\n", draft.PackageID, formatting.PluralizeSessions(draft.Remaining))
	fmt.Fprintf(&sb, "Schedule: %s at %s, %s\n", formatting.FormatRule(draft.Rule, draft.IsRecurring),
		draft.TimeOfDay, formatting.FormatDuration(draft.DurationMinutes))
	fmt.Fprintf(&sb, "Total: %s\n\n", formatting.PluralizeSessions(pv.TotalSessions))
	sb.WriteString(formatting.FormatSlots(pv.Slots, pv.Clashes))
	if len(pv.Clashes) > 0 {
		fmt.Fprintf(&sb, "\n\n⚠️ The physio is already booked at %d of these times.", len(pv.Clashes))
	}
	if pv.TotalSessions > draft.Remaining {
		fmt.Fprintf(&sb, "\n\n❌ Only %s left on the package.", formatting.PluralizeSessions(draft.Remaining))
	}

	kb := keyboard.NewBuilder().
		Row(keyboard.Button("✅ Confirm", keyboard.ConfirmPrefix+draft.SubmitToken)).
		Cancel().
		Build()
	h.sendMessage(ctx, b, chatID, sb.String(), kb)
}
