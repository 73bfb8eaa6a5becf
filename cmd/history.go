package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/taxscope/internal/utils"
	"github.com/sw33tLie/taxscope/pkg/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded refresh cycles and rate changes (requires --db)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DBPath == "" {
			return fmt.Errorf("no history database configured, pass --db")
		}
		if _, err := os.Stat(cfg.DBPath); err != nil {
			return fmt.Errorf("database not found: %s", cfg.DBPath)
		}

		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		changes, _ := cmd.Flags().GetBool("changes")
		cycleID, _ := cmd.Flags().GetString("cycle")
		ctx := context.Background()

		switch {
		case cycleID != "":
			outcomes, err := db.ListOutcomes(ctx, cycleID)
			if err != nil {
				return err
			}
			t := utils.NewTable()
			t.AppendHeader(table.Row{"Source", "Success", "HTTP", "Fetched", "Error"})
			for _, o := range outcomes {
				t.AppendRow(table.Row{o.SourceID, o.Success, o.StatusCode, o.FetchedAt.Format("2006-01-02 15:04:05"), o.Error})
			}
			t.Render()

		case changes:
			rcs, err := db.ListRateChanges(ctx, limit)
			if err != nil {
				return err
			}
			t := utils.NewTable()
			t.AppendHeader(table.Row{"When", "Change", "Jurisdiction", "Field", "Old", "New"})
			for _, c := range rcs {
				t.AppendRow(table.Row{c.OccurredAt.Format("2006-01-02 15:04:05"), c.ChangeType, c.Jurisdiction, c.Field, ratePtr(c.OldValue), ratePtr(c.NewValue)})
			}
			t.Render()

		default:
			cycles, err := db.ListCycles(ctx, limit)
			if err != nil {
				return err
			}
			t := utils.NewTable()
			t.AppendHeader(table.Row{"Cycle", "Started", "Took", "Status", "Failed sources", "Error"})
			for _, c := range cycles {
				t.AppendRow(table.Row{
					c.ID,
					humanize.Time(c.StartedAt),
					c.FinishedAt.Sub(c.StartedAt).String(),
					c.Status,
					fmt.Sprintf("%d/%d", c.Failed, c.Sources),
					c.Error,
				})
			}
			t.Render()
		}
		return nil
	},
}

func ratePtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return utils.HumanPercent(*v)
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 50, "Number of entries to show")
	historyCmd.Flags().Bool("changes", false, "List rate changes instead of cycles")
	historyCmd.Flags().String("cycle", "", "List the per-source outcomes of one cycle")
}
