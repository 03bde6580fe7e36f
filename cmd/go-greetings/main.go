package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-greetings/internal/config"
	"github.com/zalando/go-keyring"
)

// main delegates to runMain so deferred calls run before os.Exit.
func main() {
	os.Exit(runMain(os.Args[1:]))
}

// runMain executes the command line and maps the outcome to an exit code.
func runMain(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{lookup: keyring.Get}
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCode(err)
	}

	slog.Debug(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// app carries what every subcommand shares: flags, settings and the log file.
type app struct {
	configFile string
	debug      bool

	lookup    config.KeyringLookup
	settings  *config.Settings
	logCloser io.Closer
}

// flagKeys binds command line flags onto setting keys.
var flagKeys = map[string]string{
	config.FlagRoster:   config.KeyRosterPath,
	config.FlagOutput:   config.KeyOutputDir,
	config.FlagLanguage: config.KeyLanguage,
	config.FlagDays:     config.KeyUpcomingDays,
	config.FlagPort:     config.KeyFeedPort,
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               config.BinaryName,
		Short:             config.ShortRoot,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, config.FlagConfig, "", config.FlagDescConfig)
	pf.BoolVar(&a.debug, config.FlagDebug, false, config.FlagDescDebug)
	pf.String(config.FlagRoster, "", config.FlagDescRoster)
	pf.String(config.FlagOutput, config.DefaultOutputDir, config.FlagDescOutput)
	pf.String(config.FlagLanguage, config.DefaultLanguage, config.FlagDescLanguage)

	root.AddCommand(
		a.runCommand(),
		a.upcomingCommand(),
		a.serveCommand(),
		a.checkCommand(),
		versionCommand(),
	)
	return root
}

// setup loads settings and starts logging before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	s, err := config.Load(config.LoadOptions{
		ConfigFile: a.configFile,
		EnvFile:    config.DotEnvFile,
		Flags:      cmd.Flags(),
		FlagKeys:   flagKeys,
		Keyring:    a.lookup,
	})
	if err != nil {
		return err
	}
	a.settings = s
	a.logCloser = setupLogging(a.debug, s.OutputDir)
	logStartupInfo()
	return nil
}

func (a *app) close() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdVersion,
		Short: config.ShortVersion,
		Args:  cobra.NoArgs,
		// Printing the version needs no settings.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, config.MsgVersionOutput,
		config.AppName,
		config.Version,
		config.Commit,
		config.Date,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging writes JSON logs to stdout and to <outputDir>/logs.
func setupLogging(debugMode bool, outputDir string) io.Closer {
	writers := []io.Writer{os.Stdout}
	var logFile *os.File

	if logPath, err := logFilePath(outputDir); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	} else {
		fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, outputDir, err)
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts)))

	if logFile == nil {
		return nil
	}
	return logFile
}

func logFilePath(outputDir string) (string, error) {
	if outputDir == "" {
		return "", errors.New(config.ErrCreateDir)
	}
	dir := filepath.Join(outputDir, config.LogDirName)
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return filepath.Join(dir, config.LogFileName), nil
}
