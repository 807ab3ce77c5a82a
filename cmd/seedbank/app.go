package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/entrhq/seedbank/pkg/config"
	"github.com/entrhq/seedbank/pkg/filelock"
	"github.com/entrhq/seedbank/pkg/logging"
	"github.com/entrhq/seedbank/pkg/render"
	"github.com/entrhq/seedbank/pkg/seed"
	"github.com/entrhq/seedbank/pkg/storeerr"
	"github.com/entrhq/seedbank/pkg/workspace"
)

// app carries the state of one invocation. The store is opened lazily in
// the root command's pre-run hook, after flags are parsed.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	// flags
	dir    string
	format string

	// started is set once flags and arguments parsed and the command began.
	started bool

	layout   workspace.Layout
	session  workspace.Session
	log      *logging.Logger
	settings *config.SettingsStore
	store    *seed.Store
	out      *render.Printer
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, getenv: getenv}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return storeerr.ExitOK
	}
	if !a.started && storeerr.KindOf(err) == storeerr.KindInternal {
		// Unknown command, bad flag or wrong argument count.
		err = &storeerr.ValidationError{Field: "usage", Reason: err.Error()}
	}
	if a.log != nil {
		a.log.Errorf("%v", err)
	}
	format, ferr := render.ParseFormat(a.format)
	if ferr != nil {
		format = render.FormatText
	}
	render.Error(stderr, format, err)
	return storeerr.ExitCode(err)
}

// open resolves the workspace and wires the store.
func (a *app) open(cmd *cobra.Command) error {
	a.started = true
	format, err := render.ParseFormat(a.format)
	if err != nil {
		return err
	}

	layout, err := workspace.Resolve(a.dir, a.getenv)
	if err != nil {
		return err
	}
	if err := layout.Ensure(); err != nil {
		return err
	}
	a.layout = layout
	a.session = workspace.SessionFromEnv(a.getenv)

	log, err := logging.Open(layout.LogsDir(), a.session.ID, "cli")
	a.log = log
	if err != nil {
		fmt.Fprintf(a.stderr, "seedbank: logging to stderr: %v\n", err)
	}
	log.Infof("%s (dir=%s)", cmd.CommandPath(), layout.Root)
	if a.session.Rejected != "" {
		log.Warnf("ignoring invalid %s %q", workspace.EnvSession, a.session.Rejected)
	}

	policy, err := config.LoadPolicy(layout.PolicyPath())
	if err != nil {
		log.Warnf("%v", err)
	}

	lockLog := log.Named("lock")
	a.settings = config.NewSettingsStore(
		layout.SettingsPath(),
		filelock.New(layout.SettingsLock(), filelock.WithTimeout(policy.LockTimeout), filelock.WithLogger(lockLog)),
		log.Named("settings"),
	)
	store, err := seed.New(seed.Options{
		Dir:       layout.SeedsDir(),
		Guard:     filelock.New(layout.SeedsLock(), filelock.WithTimeout(policy.LockTimeout), filelock.WithLogger(lockLog)),
		Settings:  a.settings,
		Policy:    policy,
		SessionID: a.session.ID,
		Logger:    log.Named("store"),
	})
	if err != nil {
		return err
	}
	a.store = store
	a.out = render.New(a.stdout, format, store.Tier)
	return nil
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Close()
	}
}

// exactIDs reports a wrong argument count as a validation failure.
func exactIDs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return storeerr.Invalid("args", "%s takes %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

// currentSession resolves the "current" alias used by --session.
func (a *app) currentSession(v string) (string, error) {
	if v != "current" {
		if !workspace.ValidSessionID(v) {
			return "", storeerr.Invalid("session", "%q is not a valid session id", v)
		}
		return v, nil
	}
	if a.session.ID == "" {
		return "", storeerr.Invalid("session", "%s is not set", workspace.EnvSession)
	}
	return a.session.ID, nil
}
