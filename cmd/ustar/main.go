package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/integrii/flaggy"
	"github.com/samber/lo"

	"github.com/meigma/ustar"
)

var version = "unversioned"

type cliConfig struct {
	debug bool

	createFile    string
	createVerbose bool

	extractFile    string
	extractDir     string
	extractVerbose bool
	extractStdout  bool

	listFile    string
	listVerbose bool
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg := cliConfig{createFile: "-", extractFile: "-", extractDir: ".", listFile: "-"}

	flaggy.SetName("ustar")
	flaggy.SetDescription("Read and write POSIX ustar archives")
	flaggy.SetVersion(version)
	flaggy.DefaultParser.ShowHelpOnUnexpected = false
	flaggy.Bool(&cfg.debug, "d", "debug", "Log debug detail to stderr")

	createCmd := flaggy.NewSubcommand("create")
	createCmd.ShortName = "c"
	createCmd.Description = "Archive the named files and directories"
	createCmd.String(&cfg.createFile, "f", "file", "Archive file to write (- for stdout)")
	createCmd.Bool(&cfg.createVerbose, "v", "verbose", "Print each name as it is archived")
	flaggy.AttachSubcommand(createCmd, 1)

	extractCmd := flaggy.NewSubcommand("extract")
	extractCmd.ShortName = "x"
	extractCmd.Description = "Extract members into a directory"
	extractCmd.String(&cfg.extractFile, "f", "file", "Archive file to read (- for stdin)")
	extractCmd.String(&cfg.extractDir, "C", "directory", "Directory to extract into")
	extractCmd.Bool(&cfg.extractVerbose, "v", "verbose", "Print each name as it is extracted")
	extractCmd.Bool(&cfg.extractStdout, "O", "to-stdout", "Write member contents to stdout instead of files")
	flaggy.AttachSubcommand(extractCmd, 1)

	listCmd := flaggy.NewSubcommand("list")
	listCmd.ShortName = "t"
	listCmd.Description = "List the members of an archive"
	listCmd.String(&cfg.listFile, "f", "file", "Archive file to read (- for stdin)")
	listCmd.Bool(&cfg.listVerbose, "v", "verbose", "List in long format")
	flaggy.AttachSubcommand(listCmd, 1)

	flaggy.Parse()

	level := slog.LevelWarn
	if cfg.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(newLogHandler(os.Stderr, level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Anything flaggy did not claim is a member name or a root to archive.
	names := lo.Uniq(flaggy.TrailingArguments)

	var stats ustar.Stats
	var err error
	switch {
	case createCmd.Used:
		stats, err = runCreate(ctx, logger, cfg, names)
	case extractCmd.Used:
		stats, err = runExtract(ctx, logger, cfg, names)
	case listCmd.Used:
		stats, err = runList(ctx, logger, cfg, names)
	default:
		flaggy.ShowHelpAndExit("expected a command: create, extract, or list")
	}

	if err != nil {
		logger.Error(err.Error())
	}
	if err != nil || stats.Errors > 0 {
		fmt.Fprintln(os.Stderr)
		return 1
	}
	logger.Debug("done",
		"entries", stats.Entries,
		"skipped", stats.Skipped,
		"bytes", stats.TotalBytes,
	)
	return 0
}

func runCreate(ctx context.Context, logger *slog.Logger, cfg cliConfig, roots []string) (ustar.Stats, error) {
	if len(roots) == 0 {
		return ustar.Stats{}, errors.New("nothing to archive")
	}

	out, closeOut, err := openOutput(cfg.createFile)
	if err != nil {
		return ustar.Stats{}, err
	}

	opts := []ustar.CreateOption{ustar.CreateWithLogger(logger)}
	if cfg.createVerbose {
		// Keep the name listing off the archive stream.
		vw := io.Writer(os.Stdout)
		if out == os.Stdout {
			vw = os.Stderr
		}
		opts = append(opts, ustar.CreateWithVerbose(vw))
	}

	stats, err := ustar.Create(ctx, out, roots, opts...)
	if cerr := closeOut(); cerr != nil && err == nil {
		err = cerr
	}
	return stats, err
}

func runExtract(ctx context.Context, logger *slog.Logger, cfg cliConfig, members []string) (ustar.Stats, error) {
	in, closeIn, err := openInput(cfg.extractFile)
	if err != nil {
		return ustar.Stats{}, err
	}
	defer closeIn()

	opts := []ustar.ExtractOption{
		ustar.ExtractWithLogger(logger),
		ustar.ExtractWithMembers(members),
	}
	if cfg.extractStdout {
		opts = append(opts, ustar.ExtractWithStdout(os.Stdout))
	}
	if cfg.extractVerbose {
		vw := io.Writer(os.Stdout)
		if cfg.extractStdout {
			vw = os.Stderr
		}
		opts = append(opts, ustar.ExtractWithVerbose(vw))
	}

	return ustar.Extract(ctx, in, cfg.extractDir, opts...)
}

func runList(ctx context.Context, logger *slog.Logger, cfg cliConfig, members []string) (ustar.Stats, error) {
	in, closeIn, err := openInput(cfg.listFile)
	if err != nil {
		return ustar.Stats{}, err
	}
	defer closeIn()

	opts := []ustar.ListOption{
		ustar.ListWithLogger(logger),
		ustar.ListWithMembers(members),
	}
	if cfg.listVerbose {
		opts = append(opts, ustar.ListWithVerbose())
	}

	return ustar.List(ctx, in, os.Stdout, opts...)
}

// openInput resolves -f for the reading commands. "-" and "" mean stdin.
func openInput(name string) (io.Reader, func() error, error) {
	if name == "" || name == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// openOutput resolves -f for create. "-" and "" mean stdout.
func openOutput(name string) (io.Writer, func() error, error) {
	if name == "" || name == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
