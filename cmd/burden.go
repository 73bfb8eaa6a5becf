package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/taxscope/internal/utils"
	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
	"github.com/sw33tLie/taxscope/pkg/snapshot"
	"github.com/sw33tLie/taxscope/pkg/taxcalc"
)

var burdenCmd = &cobra.Command{
	Use:   "burden",
	Short: "Estimate the yearly tax burden on a profit in every jurisdiction",
	RunE: func(cmd *cobra.Command, args []string) error {
		profit, _ := cmd.Flags().GetFloat64("profit")
		id, _ := cmd.Flags().GetString("jurisdiction")
		micro, _ := cmd.Flags().GetString("micro")

		if micro != "" {
			return printMicro(profit, micro)
		}

		rates, err := burdenTable()
		if err != nil {
			return err
		}

		var burdens []taxcalc.Burden
		if id != "" {
			b, err := taxcalc.For(profit, id, rates)
			if err != nil {
				return err
			}
			burdens = append(burdens, b)
		} else {
			burdens = taxcalc.Compare(profit, rates)
		}
		printBurdens(burdens)
		return nil
	},
}

// burdenTable prefers the persisted snapshot and falls back to the baseline
// table when no cycle has run yet.
func burdenTable() (map[string]jurisdictions.Record, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := snapshot.NewStore(cfg.SnapshotPath)
	if err != nil {
		return nil, err
	}
	snap, err := store.Load()
	switch {
	case err == nil:
		return snap.Jurisdictions, nil
	case errors.Is(err, snapshot.ErrNotFound):
		utils.Log.Warnf("No snapshot at %s, using the baseline rates", store.Path())
		return jurisdictions.Fallback(), nil
	default:
		return nil, err
	}
}

func printBurdens(burdens []taxcalc.Burden) {
	t := utils.NewTable()
	t.AppendHeader(table.Row{"Jurisdiction", "City", "Corporate", "Capital gains", "Dividends", "Total", "Effective"})
	for _, b := range burdens {
		t.AppendRow(table.Row{
			b.Jurisdiction, b.City,
			humanize.CommafWithDigits(b.Corporate, 2),
			humanize.CommafWithDigits(b.CapitalGains, 2),
			humanize.CommafWithDigits(b.Dividends, 2),
			humanize.CommafWithDigits(b.Total, 2),
			fmt.Sprintf("%.2f%%", b.EffectiveRate),
		})
	}
	t.Render()
}

func printMicro(turnover float64, category string) error {
	if category == "all" {
		cats := taxcalc.MicroCategories()
		keys := make([]string, 0, len(cats))
		for k := range cats {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Category", "Activity", "Rate", "Contributions"})
		for _, k := range keys {
			due, _ := taxcalc.MicroSocial(turnover, k)
			t.AppendRow(table.Row{k, cats[k].Label, utils.HumanPercent(cats[k].SocialRate), humanize.CommafWithDigits(due, 2)})
		}
		t.Render()
		return nil
	}

	due, err := taxcalc.MicroSocial(turnover, category)
	if err != nil {
		return err
	}
	fmt.Printf("Social contributions on %s turnover (%s): %s\n",
		humanize.Commaf(turnover), category, humanize.CommafWithDigits(due, 2))
	return nil
}

func init() {
	rootCmd.AddCommand(burdenCmd)
	burdenCmd.Flags().Float64("profit", 100000, "Yearly profit (or turnover with --micro)")
	burdenCmd.Flags().StringP("jurisdiction", "j", "", "Only show this jurisdiction (example: PARIS)")
	burdenCmd.Flags().String("micro", "", "French micro-entrepreneur category (VENTE, PRESTATION_SERVICE_BIC, LIBERAL or all)")
}
