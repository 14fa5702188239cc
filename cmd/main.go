// Package cmd implements the xoppmerge command line.
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/xoppmerge/xoppmerge/internal/config"
)

// Version is set by main.
var Version = "dev"

// Main runs the CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	cliName := filepath.Base(args[0])

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	cfg, err := config.Load()
	if err != nil {
		ui.Error(fmt.Sprintf("Error: %v", err))
		return 1
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:   cliName,
		Output: os.Stderr,
		Level:  cfg.Level(false),
	})

	c := &cli.CLI{
		Name:     cliName,
		Args:     args[1:],
		Version:  Version,
		Commands: Commands(&Meta{Log: log, UI: ui, FS: afero.NewOsFs(), Config: cfg}),
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(fmt.Sprintf("Error: %v", err))
		return 1
	}
	return exitCode
}

// Commands returns the command table.
func Commands(m *Meta) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"merge": func() (cli.Command, error) {
			return &MergeCommand{Meta: m}, nil
		},
		"index": func() (cli.Command, error) {
			return &IndexCommand{Meta: m}, nil
		},
		"commit": func() (cli.Command, error) {
			return &CommitCommand{Meta: m}, nil
		},
		"automerge": func() (cli.Command, error) {
			return &AutomergeCommand{Meta: m}, nil
		},
		"log": func() (cli.Command, error) {
			return &LogCommand{Meta: m}, nil
		},
		"show": func() (cli.Command, error) {
			return &ShowCommand{Meta: m}, nil
		},
		"blame": func() (cli.Command, error) {
			return &BlameCommand{Meta: m}, nil
		},
		"stats": func() (cli.Command, error) {
			return &StatsCommand{Meta: m}, nil
		},
	}
}
