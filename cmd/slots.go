package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/teemow/apptscheduler/internal/availability"
	"github.com/teemow/apptscheduler/internal/logging"
)

func newSlotsCmd() *cobra.Command {
	var req availability.Request

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print free appointment slots as JSON",
		Long: `Compute free slots once against the configured calendar and print the
same JSON the /check_availability endpoint returns.

Example:
  apptscheduler slots --time-zone America/New_York --start 2025-03-10 --end 2025-03-12`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runSlots(cmd, cfg, req)
		},
	}

	cmd.Flags().StringVar(&req.TimeZone, "time-zone", "", "IANA zone for the printed slots (default: canonical zone)")
	cmd.Flags().StringVar(&req.StartDate, "start", "", "Start of the search window (default: today)")
	cmd.Flags().StringVar(&req.EndDate, "end", "", "End of the search window (default: start plus default-range-days)")
	addCalendarFlags(cmd)
	return cmd
}

func runSlots(cmd *cobra.Command, cfg Config, req availability.Request) error {
	logger, err := logging.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger, nil, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", logging.Err(err))
		}
	}()

	resp, err := a.availability.Check(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to check availability: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
