package cli

import (
	"fmt"
	"strings"

	"inspectsync/internal/app"
	"inspectsync/internal/config"
	"inspectsync/internal/logging"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	jsonFormat  = "json"
	tableFormat = "table"
)

var legalOutputTypes = []string{tableFormat, jsonFormat}

type GlobalOptions struct {
	LogLevel string
	Output   string

	cfg *config.Config
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Output: tableFormat,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level, overrides INSPECTSYNC_LOG_LEVEL.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

// Complete reads the environment configuration and installs the global logger
func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	zap.ReplaceGlobals(logging.InitLog(logging.ParseLevel(cfg.LogLevel)))
	o.cfg = cfg
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if !lo.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

// App opens the engine. The caller must Close it.
func (o *GlobalOptions) App() (*app.App, error) {
	if o.cfg == nil {
		return nil, fmt.Errorf("options not completed")
	}
	return app.New(o.cfg)
}
