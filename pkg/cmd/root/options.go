package root

import (
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options are the global flags. They are read before the command tree is
// built because they decide which settings file and log level to use.
type Options struct {
	ConfigFile  string
	LogLevel    string
	MetricsAddr string
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFile, "config", o.ConfigFile, "config file (default is $HOME/.folio/settings.yaml)")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&o.MetricsAddr, "metrics-addr", o.MetricsAddr, "serve Prometheus metrics on this address")
}

// ParseOptions picks the global flags out of args, falling back to FOLIO_*
// environment variables. Unknown flags are left for cobra.
func ParseOptions(args []string) *Options {
	opts := &Options{}
	fs := pflag.NewFlagSet("folio", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)
	opts.AddFlags(fs)
	fs.BoolP("help", "h", false, "")
	_ = fs.Parse(args)

	v := viper.New()
	v.SetEnvPrefix("folio")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(fs)

	opts.ConfigFile = v.GetString("config")
	opts.LogLevel = v.GetString("log-level")
	opts.MetricsAddr = v.GetString("metrics-addr")
	return opts
}
