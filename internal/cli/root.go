package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/testops/taskwatch/internal/api"
	"github.com/testops/taskwatch/internal/config"
	"github.com/testops/taskwatch/internal/logging"
	"github.com/testops/taskwatch/internal/stream"
)

// Version is set at build time via ldflags.
var Version = "dev"

// configPath is the --config flag. Empty means the standard search path.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "taskwatch",
	Short: "Launch test-generation jobs and watch them live",
	Long: `taskwatch talks to the test-generation gateway. It lists and resumes
tasks, launches new generation jobs and follows a task's live event
stream, either headless (tail) or in an interactive terminal view (watch).

Configuration is read from taskwatch.yaml in the current directory or
~/.config/taskwatch, then TASKWATCH_* environment variables, then flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// persistentBindings maps config keys to the root's persistent flags.
var persistentBindings = map[string]string{
	"api.url":   "api-url",
	"api.token": "token",
	"log.level": "log-level",
	"log.file":  "log-file",
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("taskwatch version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: ./taskwatch.yaml or ~/.config/taskwatch/taskwatch.yaml)")
	pf.String("api-url", config.DefaultAPIURL, "Gateway API root")
	pf.String("token", "", "Bearer token for the gateway")
	pf.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	pf.String("log-file", "", "Write logs to this file instead of stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig merges defaults, the config file, the environment and the
// command's flags. extra maps further config keys to local flag names.
func loadConfig(cmd *cobra.Command, extra map[string]string) (*config.Config, error) {
	v := config.NewViper(configPath)

	bind := func(bindings map[string]string) error {
		for key, name := range bindings {
			f := lookupFlag(cmd, name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
		return nil
	}
	if err := bind(persistentBindings); err != nil {
		return nil, err
	}
	if err := bind(extra); err != nil {
		return nil, err
	}

	return config.Load(v)
}

func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.InheritedFlags().Lookup(name)
}

// setupLogging applies the configured level and destination. When the
// terminal UI owns the screen and no log file is configured, logs are
// discarded. The returned func closes the log file.
func setupLogging(cfg *config.Config, ownsScreen bool, stderr io.Writer) (func(), error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logging.SetLevel(level)

	switch {
	case cfg.Log.File != "":
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logging.SetWriter(f)
		return func() {
			logging.SetWriter(stderr)
			f.Close()
		}, nil
	case ownsScreen:
		logging.SetWriter(io.Discard)
		return func() { logging.SetWriter(stderr) }, nil
	default:
		logging.SetWriter(stderr)
		return func() {}, nil
	}
}

// newClient builds the REST client for the configured gateway.
func newClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.API.URL,
		api.WithAuthToken(cfg.API.Token),
		api.WithTimeout(cfg.API.Timeout),
		api.WithUserAgent("taskwatch/"+Version),
	)
}

// newDialer builds the event stream dialer for the configured gateway.
func newDialer(cfg *config.Config) *stream.HTTPDialer {
	return stream.NewHTTPDialer(cfg.API.URL, stream.WithAuthToken(cfg.API.Token))
}

func streamOptions(cfg *config.Config) stream.Options {
	return stream.Options{
		ReconnectInterval:    cfg.Stream.ReconnectInterval,
		MaxReconnectInterval: cfg.Stream.MaxReconnectInterval,
		MaxReconnectAttempts: cfg.Stream.MaxReconnectAttempts,
		Logger:               logging.Default(),
	}
}
