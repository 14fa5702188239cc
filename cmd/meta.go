package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/xoppmerge/xoppmerge/internal/config"
	"github.com/xoppmerge/xoppmerge/internal/fileindex"
	"github.com/xoppmerge/xoppmerge/internal/store"
)

// Meta carries what every command shares.
type Meta struct {
	Log    hclog.Logger
	UI     cli.Ui
	FS     afero.Fs
	Config *config.Config
}

func (m *Meta) logger() hclog.Logger {
	if m.Log == nil {
		return hclog.NewNullLogger()
	}
	return m.Log
}

// fail reports err and returns the exit code for it.
func (m *Meta) fail(err error) int {
	m.UI.Error(fmt.Sprintf("Error: %v", err))
	return 1
}

// verbose raises the log level to debug.
func (m *Meta) verbose(on bool) {
	if on {
		m.logger().SetLevel(hclog.Debug)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.SetOutput(io.Discard)
	return f
}

// parse parses args into f. When ok is false the command stops and
// returns code.
func (m *Meta) parse(f *flag.FlagSet, args []string) (code int, ok bool) {
	err := f.Parse(reorderArgs(f, args))
	switch {
	case err == nil:
		return 0, true
	case errors.Is(err, flag.ErrHelp):
		return cli.RunResultHelp, false
	default:
		m.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1, false
	}
}

// flagHelp lists the flags of f for a Help text.
func flagHelp(f *flag.FlagSet) string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")
	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "\n  -%s", fl.Name)
		if fl.DefValue != "" && fl.DefValue != "false" {
			fmt.Fprintf(&b, "=%s", fl.DefValue)
		}
		fmt.Fprintf(&b, "\n      %s\n", fl.Usage)
	})
	return strings.TrimRight(b.String(), "\n")
}

// reorderArgs moves flags before positional args so flag.Parse works
// regardless of argument order (e.g. "file -db x" → "-db x file").
func reorderArgs(f *flag.FlagSet, args []string) []string {
	var flags, positional []string
	terminated := false
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			terminated = true
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		if strings.Contains(a, "=") || isBoolFlag(f, a) {
			continue
		}
		if i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	if terminated {
		flags = append(flags, "--")
	}
	return append(flags, positional...)
}

func isBoolFlag(f *flag.FlagSet, arg string) bool {
	fl := f.Lookup(strings.TrimLeft(arg, "-"))
	if fl == nil {
		return true
	}
	b, ok := fl.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// session is one store transaction with an indexer bound to it.
type session struct {
	db  *store.DB
	tx  *store.Tx
	ix  *fileindex.Indexer
	log hclog.Logger
}

// open opens the store named by dbFlag, or by the configuration when the
// flag is empty, and begins a transaction.
func (m *Meta) open(ctx context.Context, dbFlag string) (*session, error) {
	path, err := m.Config.DatabasePath(dbFlag)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	tx, err := db.Begin(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	m.logger().Debug("opened store", "path", path)

	ix := fileindex.New(m.FS, tx, m.logger().Named("index"))
	ix.Template = m.Config.MarkerTemplate()
	return &session{db: db, tx: tx, ix: ix, log: m.logger()}, nil
}

func (s *session) commit() error {
	return s.tx.Commit()
}

// close rolls back anything not committed and closes the store.
func (s *session) close() {
	if err := s.tx.Rollback(); err != nil {
		s.log.Debug("rollback failed", "error", err)
	}
	if err := s.db.Close(); err != nil {
		s.log.Debug("closing store failed", "error", err)
	}
}

// storeFlag registers the -db flag.
func storeFlag(f *flag.FlagSet, p *string) {
	f.StringVar(p, "db", "", "Path to the store. Defaults to $XOPPMERGE_DB, the config file, then ~/.config/xoppmerge/store.db.")
}
