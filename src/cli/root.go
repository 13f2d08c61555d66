// Package cli is the command line front end of pitfolio.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/username/pitfolio/src/config"
	"github.com/username/pitfolio/src/logger"
	"github.com/username/pitfolio/src/models"
)

var (
	taxYearFlag   int
	policyFlag    string
	catalogFlag   string
	logLevelFlag  string
	logFormatFlag string
	tolerantFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "pitfolio",
	Short: "Polish PIT-38 figures from eToro account statements",
	Long: `Pitfolio reads an eToro account statement (xlsx, or a directory of CSV
exports named after the sheets), reconciles every position, converts amounts
with NBP table A rates and prints the figures of the PIT-38 return.

Configuration comes from the environment and an optional .env file; flags
override it.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logger.L.Error("Run failed", "error", err)
	}
	return err
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.IntVarP(&taxYearFlag, "year", "y", 0, "tax year to report (default TAX_YEAR, 0 keeps every year)")
	flags.StringVar(&policyFlag, "policy", "", "tax policy file, YAML or JSON (default TAX_POLICY_PATH)")
	flags.StringVar(&catalogFlag, "catalog", "", "instrument catalog, xlsx or CSV directory (default INSTRUMENT_CATALOG_PATH)")
	flags.StringVar(&logLevelFlag, "log-level", "", "debug, info, warn or error (default LOG_LEVEL)")
	flags.StringVar(&logFormatFlag, "log-format", "", "text or json (default LOG_FORMAT)")
	flags.BoolVar(&tolerantFlag, "tolerant", false, "leave unknown instruments without a country instead of failing")
}

// loadSettings reads the configuration and applies the flags given on the command line.
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	flags := cmd.Flags()
	if flags.Changed("year") {
		cfg.TaxYear = taxYearFlag
	}
	if flags.Changed("policy") {
		cfg.TaxPolicyPath = policyFlag
	}
	if flags.Changed("catalog") {
		cfg.InstrumentCatalogPath = catalogFlag
		cfg.InstrumentCatalogURL = ""
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevelFlag
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormatFlag
	}
	if tolerantFlag {
		cfg.TradeResolveMode = models.ResolveTolerant
		cfg.DividendResolveMode = models.ResolveTolerant
	}

	logger.InitLogger(cfg.LogLevel, cfg.LogFormat)
	return nil
}
