package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/taxscope/internal/utils"
	"github.com/sw33tLie/taxscope/pkg/jurisdictions"
	"github.com/sw33tLie/taxscope/pkg/snapshot"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := snapshot.NewStore(cfg.SnapshotPath)
		if err != nil {
			return err
		}

		raw, _ := cmd.Flags().GetBool("raw")
		if raw {
			data, err := store.LoadRaw()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}

		snap, err := store.Load()
		if err != nil {
			return err
		}

		fmt.Printf("Last update: %s (%s), refreshed every %s\n",
			snap.LastUpdate.Format("2006-01-02 15:04:05 MST"), humanize.Time(snap.LastUpdate), snap.UpdateFrequency)
		if snap.Note != "" {
			fmt.Println(snap.Note)
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"ID", "City", "Country", "Corporate", "Reduced", "VAT", "Capital gains", "Dividends", "Startup", "Verified"})
		for _, id := range jurisdictions.IDs(snap.Jurisdictions) {
			r := snap.Jurisdictions[id]
			reduced := ""
			if r.CorporateTax.Reduced != nil {
				reduced = utils.HumanPercent(*r.CorporateTax.Reduced)
				if r.CorporateTax.Threshold != nil {
					reduced += " up to " + humanize.Commaf(*r.CorporateTax.Threshold)
				}
			}
			t.AppendRow(table.Row{
				id, r.City, r.Country,
				utils.HumanPercent(r.CorporateTax.Standard),
				reduced,
				utils.HumanPercent(r.VAT.Standard),
				utils.HumanPercent(r.CapitalGainsTax),
				utils.HumanPercent(r.DividendTax),
				utils.HumanPercent(r.StartupRate),
				r.VerifiedDate,
			})
		}
		t.Render()

		ids := make([]string, 0, len(snap.ScrapeResults))
		for id := range snap.ScrapeResults {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		st := utils.NewTable()
		st.AppendHeader(table.Row{"Source", "Result", "Checked", "Title / Error"})
		for _, id := range ids {
			o := snap.ScrapeResults[id]
			result, detail := "ok", o.PageTitle
			if !o.Success {
				result, detail = "failed", o.Error
			}
			st.AppendRow(table.Row{id, result, humanize.Time(o.Timestamp), detail})
		}
		st.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Bool("raw", false, "Print the snapshot file as stored")
}
