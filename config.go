package main

import (
	"os"
	"strconv"
	"time"

	"github.com/dartos/init-system/initsys"
	"github.com/dartos/init-system/initsys/shutdown"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"
)

// Options are the settings that can come from either the config file or the
// command line. Flags win over the file.
type Options struct {
	Source      string        `yaml:"source"`
	Consumer    string        `yaml:"consumer"`
	Edge        string        `yaml:"edge"`
	Debounce    time.Duration `yaml:"debounce"`
	GraceDelay  time.Duration `yaml:"grace_delay"`
	StopTimeout time.Duration `yaml:"stop_timeout"`
	Journal     string        `yaml:"journal"`
}

func defaultOptions() Options {
	return Options{
		Source:     string(shutdown.KindGPIO),
		Consumer:   initsys.DefaultConsumer,
		Edge:       string(shutdown.EdgeFalling),
		GraceDelay: initsys.DefaultGraceDelay,
	}
}

func (opts *Options) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&opts.Source, "source", opts.Source, "shutdown source: gpio, file or signal")
	fs.StringVar(&opts.Consumer, "consumer", opts.Consumer, "consumer label of the GPIO line request")
	fs.StringVar(&opts.Edge, "edge", opts.Edge, "GPIO edge that signals shutdown: falling, rising or both")
	fs.DurationVar(&opts.Debounce, "debounce", opts.Debounce, "GPIO debounce period, 0 to disable")
	fs.DurationVar(&opts.GraceDelay, "grace", opts.GraceDelay, "delay before checking for applications that died on launch")
	fs.DurationVar(&opts.StopTimeout, "stop-timeout", opts.StopTimeout, "time applications get to exit before SIGKILL, 0 waits forever")
	fs.StringVar(&opts.Journal, "journal", opts.Journal, "path to the persistent JSON journal, empty to disable")
}

// loadOptions reads the YAML config file at path into a copy of base.
func loadOptions(path string, base Options) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, errors.Wrap(err, "failed to open config")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	opts := base
	if err := dec.Decode(&opts); err != nil {
		return base, errors.Wrap(unix.EINVAL, "invalid config: "+err.Error())
	}

	return opts, nil
}

// mergeOptions returns file with every flag explicitly set on fs taken from
// flags instead.
func mergeOptions(file, flags Options, fs *pflag.FlagSet) Options {
	merged := file

	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("source", func() { merged.Source = flags.Source })
	set("consumer", func() { merged.Consumer = flags.Consumer })
	set("edge", func() { merged.Edge = flags.Edge })
	set("debounce", func() { merged.Debounce = flags.Debounce })
	set("grace", func() { merged.GraceDelay = flags.GraceDelay })
	set("stop-timeout", func() { merged.StopTimeout = flags.StopTimeout })
	set("journal", func() { merged.Journal = flags.Journal })

	return merged
}

// sourceOptions converts opts into the options of the shutdown source.
func (opts Options) sourceOptions() (shutdown.Options, error) {
	edge, err := shutdown.ParseEdge(opts.Edge)
	if err != nil {
		return shutdown.Options{}, err
	}

	return shutdown.Options{
		Kind: shutdown.Kind(opts.Source),
		GPIO: shutdown.GPIO{
			Edge:     edge,
			Debounce: opts.Debounce,
		},
	}, nil
}

// parseLine parses a GPIO line number the way strtoul with base 0 does:
// decimal, 0x-prefixed hexadecimal or 0-prefixed octal. The number must fit an
// unsigned int, and nothing may follow it. Go literal syntax such as
// underscores or 0b and 0o prefixes is rejected.
func parseLine(s string) (uint32, error) {
	digits, base := s, 10
	switch {
	case len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X"):
		digits, base = s[2:], 16
	case len(s) > 1 && s[0] == '0':
		digits, base = s[1:], 8
	}

	// An explicit base makes ParseUint refuse underscores and signs.
	line, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, errors.Wrapf(unix.EINVAL, "invalid GPIO line %q", s)
	}
	return uint32(line), nil
}
