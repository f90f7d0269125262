package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/iwvelando/commission-calculator/internal/calculator"
	"github.com/iwvelando/commission-calculator/internal/config"
	"github.com/iwvelando/commission-calculator/internal/logging"
	"github.com/iwvelando/commission-calculator/internal/metrics"
	"github.com/iwvelando/commission-calculator/pkg/constants"
	"github.com/iwvelando/commission-calculator/pkg/format"
	"github.com/iwvelando/commission-calculator/pkg/output"
	"github.com/iwvelando/commission-calculator/pkg/validation"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes the calculator and returns the process exit code: 0 when every
// calculation succeeded, 2 when any failed validation and 1 on errors.
func run(args []string, stdout io.Writer) int {
	flags := flag.NewFlagSet("commission-calculator", flag.ContinueOnError)

	// Process command line flags first to get config location
	configLocation := flags.String("config", constants.DefaultConfigFile, "path to configuration file")
	envFile := flags.String("env", constants.DefaultEnvFile, "optional .env file loaded before the configuration")
	outputFormatFlag := flags.String("output-format", "", "type of output override: pretty, csv, xlsx")
	outputFileFlag := flags.String("output-file", "", "write output to this file instead of stdout (required for xlsx)")
	logLevel := flags.String("log-level", "", "log level override (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(stdout, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load env file at %s\", \"error\": \"%v\"}\n", *envFile, err)
		return 1
	}

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Fprintf(stdout, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return 1
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Fprintf(stdout, "{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI overrides take precedence over config
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	outputFile := conf.Output.File
	if *outputFileFlag != "" {
		outputFile = *outputFileFlag
	}

	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Error(err.Error(), zap.String("op", "main"))
		return 1
	}
	if outputFormat == constants.OutputFormatXLSX && outputFile == "" {
		logger.Error("xlsx output requires an output file", zap.String("op", "main"))
		return 1
	}

	display, err := format.NewDisplayContext(conf.Display.Currency)
	if err != nil {
		logger.Error("invalid display currency",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return 1
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	calc := calculator.New(logger, conf.Catalog(), metrics.NewRecorder())
	outcomes, err := calc.RunAll(*conf)
	if err != nil {
		logger.Error("failed to run calculations",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return 1
	}

	if err := render(stdout, outputFormat, outputFile, display, outcomes); err != nil {
		logger.Error("failed to write output",
			zap.String("op", "main"),
			zap.String("format", outputFormat),
			zap.Error(err),
		)
		return 1
	}

	invalid := 0
	for _, outcome := range outcomes {
		if !outcome.Valid() {
			invalid++
		}
	}
	if invalid > 0 {
		logger.Warn(fmt.Sprintf("%d of %d calculations failed validation", invalid, len(outcomes)),
			zap.String("op", "main"),
		)
		return 2
	}

	return 0
}

func render(w io.Writer, outputFormat, outputFile string, display format.DisplayContext, outcomes []calculator.Outcome) (err error) {
	if outputFile != "" {
		file, createErr := os.Create(outputFile)
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		w = file
	}

	switch outputFormat {
	case constants.OutputFormatCSV:
		return output.CsvFormat(w, outcomes)
	case constants.OutputFormatXLSX:
		return output.XLSXFormat(w, outcomes)
	default:
		output.PrettyFormat(w, display, outcomes)
		return nil
	}
}
