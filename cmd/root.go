// =============================================================================
// Plano de Aplicação Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (plano)
//   ├── fillCmd     (plano fill)
//   ├── serveCmd    (plano serve)
//   ├── parseCmd    (plano parse)
//   ├── templateCmd (plano template)
//   └── versionCmd  (plano version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose, --log-level)
//   2. Loading config.yaml with PLANO_* and flag overrides (viper)
//   3. Setting up logging (zap)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/config"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// v holds environment and flag overrides on top of the config file.
var v = config.NewViper()

// mainConfig is loaded by initConfig before any command runs.
var (
	mainConfig *config.MainConfig
	configErr  error
)

// zapLogger is built in PersistentPreRunE; logger is its sugared form.
var (
	zapLogger *zap.Logger
	logger    logging.Logger = logging.Nop()
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "plano",
	Short: "Plano de Aplicação converter - fill the XLSX template from the PDF",
	Long: `plano reads "Plano de Aplicação" budget documents (PDF), finds every
goal and line item, and writes one spreadsheet row per item into an XLSX
template.

Example Usage:
  plano fill                          # Convert every PDF in the input directory
  plano fill --file ./plano.pdf       # Convert a single file
  plano serve --addr :8080            # Run the upload form
  plano parse --file ./plano.pdf      # Dump the parsed items as YAML
  plano template                      # Show the template header row`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		return setupLogging()
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLogger != nil {
			_ = zapLogger.Sync()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which stops batch conversion and shuts the web form down.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", config.DefaultConfigPath, "Path to the main configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
}

// initConfig loads the configuration. Errors are reported by
// PersistentPreRunE so that help output still works with a broken config.
func initConfig() {
	mainConfig, configErr = config.Load(cfgFile, v)
	if configErr != nil {
		configErr = fmt.Errorf("failed to load main config: %w", configErr)
	}
}

// setupLogging builds the zap logger from the loaded configuration.
func setupLogging() error {
	level := mainConfig.LogLevel
	if verbose {
		level = "debug"
	}

	l, err := logging.New(level, mainConfig.LogFile)
	if err != nil {
		return err
	}
	zapLogger = l
	logger = l.Sugar()

	logger.Debugw("configuration loaded", "config", cfgFile, "template", mainConfig.TemplatePath)
	return nil
}
