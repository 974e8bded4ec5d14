package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/vk/simbatch/internal/app"
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

// varsFlag collects repeated -var name=value flags.
type varsFlag map[string]string

func (v varsFlag) String() string {
	pairs := make([]string, 0, len(v))
	for k, val := range v {
		pairs = append(pairs, k+"="+val)
	}
	return strings.Join(pairs, ",")
}

func (v varsFlag) Set(raw string) error {
	k, val, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected name=value, got %q", raw)
	}
	v[strings.TrimSpace(k)] = val
	return nil
}

const usageText = `
simbatch - Create, submit, mirror and process HTCondor simulation batches.

Usage:
  simbatch <command> [options] [CONFIG_PATH]

Commands:
  create   Expand a job's parameters and write its job directory.
  submit   Upload a job directory to the cluster and run condor_submit.
  status   Print the cluster queue.
  mirror   Copy finished results from the cluster into the local mirror.
  process  Load finished simulations and write the job summaries.

Arguments:
  CONFIG_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("simbatch", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usageText)
		flagSet.PrintDefaults()
	}

	if len(args) == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	command := args[0]
	switch command {
	case "-h", "-help", "--help", "help":
		flagSet.Usage()
		return nil, true, nil
	}
	if strings.HasPrefix(command, "-") {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected a command before options, got %q", command)}
	}

	envFileFlag := flagSet.String("env-file", ".env", "File with KEY=VALUE environment overrides. Missing files are ignored.")
	// The env file has to be loaded before flag defaults are read from the
	// environment, so it is picked out of the arguments first.
	envFile := *envFileFlag
	for i, a := range args {
		name := strings.TrimLeft(a, "-")
		if v, ok := strings.CutPrefix(name, "env-file="); ok && name != a {
			envFile = v
		} else if name == "env-file" && name != a && i+1 < len(args) {
			envFile = args[i+1]
		}
	}
	if err := app.LoadDotEnv(envFile); err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("failed to load %s: %v", envFile, err)}
	}

	configFlag := flagSet.String("config", app.EnvDefault("config", ""), "Path to the HCL file or directory.")
	cFlag := flagSet.String("c", "", "Path to the HCL file or directory (shorthand).")
	jobFlag := flagSet.String("job", app.EnvDefault("job", ""), "Job to operate on. Defaults to the only job defined.")
	clusterFlag := flagSet.String("cluster", app.EnvDefault("cluster", ""), "Cluster to use. Defaults to the only cluster defined.")
	jobsDirFlag := flagSet.String("jobs-dir", app.EnvDefault("jobs_dir", app.DefaultJobsDir), "Local directory holding job directories.")
	jobDirFlag := flagSet.String("job-dir", "", "Process this job directory instead of <jobs-dir>/<job>.")
	forceFlag := flagSet.Bool("force", false, "process: retry every simulation. mirror: download every file.")
	integrityFlag := flagSet.Bool("integrity-check", false, "mirror: compare remote and local md5 after each download.")
	archiveFlag := flagSet.Bool("archive", false, "process: upload summaries to the ARCHIVE_S3_* bucket.")
	logFormatFlag := flagSet.String("log-format", app.EnvDefault("log_format", "text"), "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", app.EnvDefault("log_level", "info"), "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	vars := varsFlag(app.EnvVars())
	flagSet.Var(vars, "var", "Set an HCL variable as name=value. Repeatable.")

	if err := flagSet.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.", "command", command)

	path := ""
	if *configFlag != "" {
		path = *configFlag
	} else if *cFlag != "" {
		path = *cFlag
	}
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %s", strings.Join(flagSet.Args()[1:], " "))}
	}
	slog.Debug("Config path determined.", "path", path)

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
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:        command,
		ConfigPath:     path,
		Vars:           maps.Clone(map[string]string(vars)),
		JobName:        *jobFlag,
		ClusterName:    *clusterFlag,
		JobsDir:        *jobsDirFlag,
		JobDir:         *jobDirFlag,
		Force:          *forceFlag,
		IntegrityCheck: *integrityFlag,
		Archive:        *archiveFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
