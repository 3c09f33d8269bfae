package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/formatting"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/controller/preview"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/model"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/scheduling"
	"github.com/spf13/cobra"
)

type previewOptions struct {
	start    string
	end      string
	time     string
	rule     string
	duration int
	credit   int
	tz       string
	image    string
}

func previewCmd() *cobra.Command {
	opts := &previewOptions{}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the sessions a booking would create, without a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.start, "start", "", "First session date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.end, "end", "", "Last session date for recurring bookings (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.time, "time", "", "Session time of day (HH:MM, 24h)")
	cmd.Flags().StringVar(&opts.rule, "rule", "", "daily, weekdays or weekly; empty books a single session")
	cmd.Flags().IntVar(&opts.duration, "duration", 45, "Session length in minutes")
	cmd.Flags().IntVar(&opts.credit, "credit", 0, "Remaining sessions; clamps the end date when set")
	cmd.Flags().StringVar(&opts.tz, "tz", "UTC", "IANA time zone of the clinic")
	cmd.Flags().StringVar(&opts.image, "image", "", "Also write a PNG calendar to this path")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("time")

	return cmd
}

func runPreview(out io.Writer, opts *previewOptions) error {
	loc, err := time.LoadLocation(opts.tz)
	if err != nil {
		return fmt.Errorf("load time zone: %w", err)
	}

	req, err := opts.request()
	if err != nil {
		return err
	}

	if req.IsRecurring && opts.credit > 0 {
		end, clamped := scheduling.ClampEndDate(req.StartDate, req.EndDate, req.Rule, opts.credit)
		if clamped {
			fmt.Fprintf(out, "End date clamped to %s (%s)\n",
				formatting.FormatDate(end), formatting.PluralizeSessions(opts.credit))
		}
		req.EndDate = end
	}

	slots, err := scheduling.NewGenerator(loc).Generate(scheduling.ParamsFor(req))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s, %s, %s\n",
		formatting.FormatRule(req.Rule, req.IsRecurring),
		formatting.FormatDuration(req.DurationMinutes),
		formatting.PluralizeSessions(len(slots)))
	for _, slot := range slots {
		fmt.Fprintf(out, "%s  %s\n", slot.AppointmentInstant.Format("Mon 2006-01-02 15:04"), slot.TimezoneID)
	}

	if opts.image == "" {
		return nil
	}

	png, err := preview.GenerateImage("Session preview", slots, nil)
	if err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	if err := os.WriteFile(opts.image, png, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	fmt.Fprintf(out, "Calendar written to %s\n", opts.image)
	return nil
}

func (o *previewOptions) request() (model.BookingRequest, error) {
	req := model.BookingRequest{
		TimeOfDay:       o.time,
		DurationMinutes: o.duration,
		Rule:            model.RecurrenceRule(o.rule),
		IsRecurring:     o.rule != "",
	}

	start, err := time.Parse("2006-01-02", o.start)
	if err != nil {
		return req, fmt.Errorf("invalid --start: %w", err)
	}
	req.StartDate = start

	if !req.IsRecurring {
		return req, nil
	}
	if !req.Rule.IsValid() {
		return req, fmt.Errorf("invalid --rule %q", o.rule)
	}

	if o.end != "" {
		end, err := time.Parse("2006-01-02", o.end)
		if err != nil {
			return req, fmt.Errorf("invalid --end: %w", err)
		}
		if end.Before(start) {
			return req, fmt.Errorf("--end is before --start")
		}
		req.EndDate = end
	} else if o.credit <= 0 {
		return req, fmt.Errorf("--end or --credit is required for recurring bookings")
	}

	return req, nil
}
