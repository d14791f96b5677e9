// =============================================================================
// Plano de Aplicação Converter - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   plano serve [--addr :8080]
//
// Runs the upload form until SIGINT or SIGTERM.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/converter"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/pdftext"
	"github.com/ginjaninja78/plano-aplicacao-xlsx/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web upload form",
	Long: `The serve command starts an HTTP server with a form that accepts one PDF
and returns the filled spreadsheet as a download.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := converter.OptionsFromConfig(mainConfig)
		if err != nil {
			return err
		}
		pipeline := converter.NewPipeline(pdftext.NewExtractor(), opts, logger)

		handler, err := web.NewHandler(pipeline, web.OptionsFromConfig(mainConfig), logger)
		if err != nil {
			return fmt.Errorf("failed to create handler: %w", err)
		}

		return web.NewServer(mainConfig.Server, handler, logger).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default from server.addr)")
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
