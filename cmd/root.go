package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/taxscope/internal/utils"
	"github.com/sw33tLie/taxscope/pkg/config"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	 _
	| |_ __ ___  _____  ___ ___  _ __   ___
	| __/ _' \ \/ / __|/ __/ _ \| '_ \ / _ \
	| || (_| |>  <\__ \ (_| (_) | |_) |  __/
	 \__\__,_/_/\_\___/\___\___/| .__/ \___|
	                            |_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taxscope",
	Short: "Keeps an up-to-date snapshot of startup tax rates and serves it.",
	Long: LOGO + `taxscope periodically checks official tax authority pages, merges what it finds with a
verified baseline of corporate, VAT, capital gains and dividend rates, and serves the
resulting snapshot to the dashboard.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.taxscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().StringP("snapshot", "s", "", "Path of the snapshot file (default tax-data.json)")
	rootCmd.PersistentFlags().String("db", "", "SQLite file recording cycle history (optional)")

	viper.BindPFlag("proxy", rootCmd.PersistentFlags().Lookup("proxy"))
	viper.BindPFlag("snapshot_path", rootCmd.PersistentFlags().Lookup("snapshot"))
	viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db"))
}

// setupViper registers defaults and TAXSCOPE_* environment overrides.
func setupViper() {
	def := config.Default()

	sources := make([]map[string]interface{}, 0, len(def.Sources))
	for _, s := range def.Sources {
		sources = append(sources, map[string]interface{}{
			"id":      s.ID,
			"url":     s.URL,
			"name":    s.Name,
			"country": s.Country,
		})
	}

	viper.SetDefault("sources", sources)
	viper.SetDefault("refresh_interval", def.RefreshInterval.String())
	viper.SetDefault("schedule", def.Schedule)
	viper.SetDefault("snapshot_path", def.SnapshotPath)
	viper.SetDefault("fetch_timeout", def.FetchTimeout.String())
	viper.SetDefault("fetch_retries", def.FetchRetries)
	viper.SetDefault("concurrency", def.Concurrency)
	viper.SetDefault("listen", def.ListenAddr)
	viper.SetDefault("static_dir", def.StaticDir)
	viper.SetDefault("db_path", def.DBPath)
	viper.SetDefault("username", "")
	viper.SetDefault("password", "")
	viper.SetDefault("rate_limit", def.RateLimit)
	viper.SetDefault("rate_burst", def.RateBurst)

	viper.SetEnvPrefix("TAXSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setupViper()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".taxscope")
		viper.SetConfigType("yaml")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.taxscope.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		} else {
			fmt.Printf("Error reading config file: %s\n", err)
			os.Exit(1)
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

// loadConfig decodes the merged flag, env, file and default values.
func loadConfig() (config.Config, error) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
