package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/taxscope/internal/utils"
	"github.com/sw33tLie/taxscope/pkg/polling"
)

// scrapeCmd runs a single refresh cycle and exits
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one refresh cycle, write the snapshot and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := polling.RunCycle(ctx, p.cycle)
		if res != nil {
			printOutcomes(res)
		}
		return err
	},
}

func printOutcomes(res *polling.CycleResult) {
	t := utils.NewTable()
	t.SetTitle("Cycle " + res.ID)
	t.AppendHeader(table.Row{"Source", "Domain", "Result", "HTTP", "Title / Error"})
	for _, o := range res.Outcomes {
		result, detail := "ok", o.PageTitle
		if !o.Success {
			result, detail = "failed", o.Error
		}
		code := ""
		if o.StatusCode != 0 {
			code = strconv.Itoa(o.StatusCode)
		}
		t.AppendRow(table.Row{o.SourceID, o.Source.Domain(), result, code, detail})
	}
	t.AppendFooter(table.Row{"", "", "", "", "took " + res.Duration.Round(time.Millisecond).String()})
	t.Render()

	for _, c := range res.Changes {
		utils.Log.Infof("%s %s.%s: %s -> %s", c.ChangeType, c.Jurisdiction, c.Field, ratePtr(c.Old), ratePtr(c.New))
	}
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}
