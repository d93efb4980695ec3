package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wolfman30/branch-booking/internal/app"
	appconfig "github.com/wolfman30/branch-booking/internal/config"
	"github.com/wolfman30/branch-booking/internal/views"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

// cli carries the terminal streams and the application context shared by
// every command.
type cli struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	verbose  bool
	logLevel string
	envFile  string
	yes      bool

	// config and options override the environment; tests set them.
	config  *appconfig.Config
	options app.Options

	app         *app.App
	nav         *terminalNavigator
	unsubscribe func()
}

func newCLI(in io.Reader, out, errOut io.Writer) *cli {
	return &cli{in: bufio.NewReader(in), out: out, errOut: errOut}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "booking",
		Short: "Book, review and cancel branch appointments",
		Long: `booking is a terminal client for the branch appointment service.

Sign in once with "booking login"; the session is kept between runs
(see SESSION_BACKEND) until you log out or the server rejects it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.start(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.stop()
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging on stderr")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Environment file to load when present")

	root.AddCommand(newLoginCmd(c))
	root.AddCommand(newLogoutCmd(c))
	root.AddCommand(newStatusCmd(c))
	root.AddCommand(newBranchesCmd(c))
	root.AddCommand(newSlotsCmd(c))
	root.AddCommand(newBookCmd(c))
	root.AddCommand(newAppointmentsCmd(c))
	return root
}

func (c *cli) start(cmd *cobra.Command) error {
	if c.app != nil {
		return nil
	}
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", c.envFile, err)
		}
	}

	cfg := c.config
	if cfg == nil {
		cfg = appconfig.Load()
	}
	level := c.logLevel
	if c.verbose {
		level = "debug"
	}

	opts := c.options
	if opts.Logger == nil {
		opts.Logger = logging.NewWithWriter(c.errOut, level)
	}
	c.nav = &terminalNavigator{w: c.errOut, verbose: c.verbose}
	if opts.Navigator == nil {
		opts.Navigator = c.nav
	}
	if opts.Confirmer == nil {
		opts.Confirmer = views.ConfirmFunc(c.confirm)
	}

	a, err := app.New(cmd.Context(), cfg, opts)
	if err != nil {
		return err
	}
	c.app = a
	c.unsubscribe = a.Notifications.Subscribe(newNotificationPrinter(c.errOut).print)
	return nil
}

func (c *cli) stop() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	if c.app != nil {
		_ = c.app.Close()
		c.app = nil
	}
}

// deps returns the view dependencies, auto-confirming when --yes was given.
func (c *cli) deps() views.Deps {
	d := c.app.ViewDeps()
	if c.yes {
		d.Confirmer = views.ConfirmFunc(func(string) bool { return true })
	}
	return d
}

// confirm asks prompt on stderr and reads a y/N answer from stdin.
func (c *cli) confirm(prompt string) bool {
	if c.yes {
		return true
	}
	answer, err := c.prompt(prompt + " [y/N]: ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.errOut, label)
	line, err := c.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *cli) requireSession() error {
	if !c.app.Session.IsAuthenticated() {
		return errors.New(`not signed in; run "booking login" first`)
	}
	return nil
}
