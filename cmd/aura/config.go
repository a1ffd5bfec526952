package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"aura-board/internal/client"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	server  string
	session string
	timeout time.Duration
	verbose bool
}

func (c *Config) validate() error {
	if c.server == "" {
		return errors.New("--server must be set")
	}
	if c.timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s", c.timeout)
	}
	return nil
}

// cli is the state shared by every command once flags are resolved.
type cli struct {
	cfg      *Config
	api      *client.Client
	sessions *client.SessionStore
	session  client.Session
}

func newRootCmd() *cobra.Command {
	cfg := &Config{}
	app := &cli{cfg: cfg}

	v := viper.New()
	v.SetEnvPrefix("AURA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "aura",
		Short: "Rank your friends by aura, together, in real time.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Root().PersistentFlags()
			fs.VisitAll(func(f *pflag.Flag) {
				_ = v.BindPFlag(f.Name, f)
				_ = v.BindEnv(f.Name)
				if !f.Changed && v.IsSet(f.Name) {
					_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
				}
			})
			if err := cfg.validate(); err != nil {
				return err
			}
			return app.setup()
		},
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVarP(&cfg.server, "server", "s", "http://localhost:8080", "backend base URL (env: AURA_SERVER)")
	fs.StringVar(&cfg.session, "session", "", "session file (default: <user config dir>/aura/session.json) (env: AURA_SESSION)")
	fs.DurationVar(&cfg.timeout, "timeout", 15*time.Second, "timeout for one-shot commands (env: AURA_TIMEOUT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log sync activity to stderr (env: AURA_VERBOSE)")

	cmd.AddCommand(
		newSignUpCmd(app),
		newLoginCmd(app),
		newLogoutCmd(app),
		newWhoAmICmd(app),
		newRoomCmd(app),
		newListCmd(app),
		newWatchCmd(app),
		newAddCmd(app),
		newAdjustCmd(app),
		newMoveCmd(app),
		newRemoveCmd(app),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func (a *cli) setup() error {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if a.cfg.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	path := a.cfg.session
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			return fmt.Errorf("locate session file: %w", err)
		}
		path = p
	}
	a.sessions = client.NewSessionStore(path)

	sess, err := a.sessions.Load()
	if err != nil {
		return err
	}
	a.session = sess

	api, err := client.New(a.cfg.server, client.WithToken(sess.Token))
	if err != nil {
		return err
	}
	a.api = api
	return nil
}

func (a *cli) save() error {
	a.session.Token = a.api.Token()
	return a.sessions.Save(a.session)
}
