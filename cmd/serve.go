package cmd

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/taxscope/internal/server"
	"github.com/sw33tLie/taxscope/internal/utils"
	"github.com/sw33tLie/taxscope/pkg/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh the snapshot on a schedule and serve it over HTTP",
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

		trigger, err := newTrigger(cfg)
		if err != nil {
			return err
		}

		// Bind before scheduling anything so a busy port fails fast
		ln, err := net.Listen("tcp", cfg.ListenAddr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sched := scheduler.New(p.run, trigger, utils.Log.WithField("component", "scheduler"))
		schedDone := make(chan struct{})
		go func() {
			defer close(schedDone)
			sched.Run(ctx)
		}()

		srv := server.New(server.Options{
			Store:     p.store,
			Scheduler: sched,
			StaticDir: cfg.StaticDir,
			Username:  cfg.Username,
			Password:  cfg.Password,
			RateLimit: cfg.RateLimit,
			RateBurst: cfg.RateBurst,
			Log:       utils.Log,
		})
		err = srv.Serve(ctx, ln)

		stop()
		utils.Log.Info("Shutting down, waiting for the running cycle to finish")
		<-schedDone
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().Duration("interval", 0, "Time between refresh cycles (default 6h)")
	serveCmd.Flags().String("schedule", "", "Cron expression replacing --interval (example: \"0 */6 * * *\")")
	serveCmd.Flags().String("static", "", "Directory of dashboard assets served at /")
	serveCmd.Flags().StringP("username", "u", "", "Username for basic auth (optional)")
	serveCmd.Flags().StringP("password", "p", "", "Password for basic auth (optional)")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("refresh_interval", serveCmd.Flags().Lookup("interval"))
	viper.BindPFlag("schedule", serveCmd.Flags().Lookup("schedule"))
	viper.BindPFlag("static_dir", serveCmd.Flags().Lookup("static"))
	viper.BindPFlag("username", serveCmd.Flags().Lookup("username"))
	viper.BindPFlag("password", serveCmd.Flags().Lookup("password"))
}
