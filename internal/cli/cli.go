package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Config holds the validated command-line options.
type Config struct {
	GraphPath string
	OutPath   string
	LogFormat string
	LogLevel  string
	Passes    int
	ZeroGrad  bool
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("graphgrad", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
graphgrad - Reverse-mode automatic differentiation over a graph file.

Usage:
  graphgrad [options] GRAPH_PATH

Arguments:
  GRAPH_PATH
    Path to an .hcl file declaring leaf and node blocks and an output.

Options:
`)
		flagSet.PrintDefaults()
	}

	outFlag := flagSet.String("out", "", "Write values and gradients to this SafeTensors file.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	passesFlag := flagSet.Int("passes", 1, "Number of backward passes to run from the output.")
	zeroGradFlag := flagSet.Bool("zero-grad", false, "Reset gradients before every backward pass.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "expected exactly one graph file"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *passesFlag < 1 {
		return nil, false, &ExitError{Code: 2, Message: "invalid passes: must be at least 1"}
	}

	config := &Config{
		GraphPath: flagSet.Arg(0),
		OutPath:   *outFlag,
		LogFormat: logFormat,
		LogLevel:  logLevel,
		Passes:    *passesFlag,
		ZeroGrad:  *zeroGradFlag,
	}
	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
