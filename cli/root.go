package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sliverarmory/nativecall"
	"github.com/sliverarmory/nativecall/internal/config"
	"github.com/sliverarmory/nativecall/internal/logger"
)

type rootOptions struct {
	configFile  string
	getSymbol   string
	printSymbol string
	value       string
	fromMemory  bool
	verify      bool
	logLevel    string
	logFormat   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "nativecall [shared library]",
		Short: "Load a shared library, print the value of its producer export and pass a value to its consumer export",
		Long: `Load a native shared library and call two exports with fixed signatures:

  uint64_t get_uint64(void)      its result is printed in decimal
  void print_uint64(uint64_t)    called with --value (default 2^64-1)

The declared signatures are trusted. An export whose real signature differs
is undefined behaviour, not an error; use --verify to at least confirm both
exports exist and are functions.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd, args)
			if err != nil {
				return err
			}
			return run(cmd, cfg, log)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&opts.getSymbol, "get-symbol", nativecall.DefaultProducer, "Export declared as uint64_t f(void)")
	flags.StringVar(&opts.printSymbol, "print-symbol", nativecall.DefaultConsumer, "Export declared as void f(uint64_t)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")
	cmd.Flags().StringVar(&opts.value, "value", config.DefaultValue, "Decimal unsigned 64-bit value passed to the consumer export")
	cmd.Flags().BoolVar(&opts.fromMemory, "from-memory", false, "Read the library into memory and load it from there")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "Check both exports against the library's symbol table before binding (ELF only)")

	cmd.AddCommand(newSignaturesCommand(opts))
	cmd.AddCommand(newExportsCommand(opts))
	return cmd
}

// load resolves configuration from file, environment and the flags that were
// set explicitly, and builds the logger.
func (opts *rootOptions) load(cmd *cobra.Command, args []string) (*config.Config, *slog.Logger, error) {
	overrides := make(map[string]any)
	if len(args) > 0 {
		overrides["library"] = args[0]
	}
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("get-symbol") {
		overrides["symbols.get"] = opts.getSymbol
	}
	if changed("print-symbol") {
		overrides["symbols.print"] = opts.printSymbol
	}
	if changed("value") {
		overrides["value"] = opts.value
	}
	if changed("from-memory") {
		overrides["load.memory"] = opts.fromMemory
	}
	if changed("verify") {
		overrides["load.verify"] = opts.verify
	}
	if changed("log-level") {
		overrides["log.level"] = opts.logLevel
	}
	if changed("log-format") {
		overrides["log.format"] = opts.logFormat
	}

	cfg, err := config.NewLoader(config.WithConfigFile(opts.configFile)).Load(overrides)
	if err != nil {
		return nil, nil, err
	}
	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	logCfg.Output = cmd.ErrOrStderr()
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func run(cmd *cobra.Command, cfg *config.Config, log *slog.Logger) error {
	if cfg.Library == "" {
		return errors.New("no shared library given: pass a path or set library in the config")
	}
	value, err := cfg.ParsedValue()
	if err != nil {
		return err
	}

	library, err := openLibrary(cfg, log)
	if err != nil {
		return err
	}
	defer library.Close()

	table := cfg.Signatures()
	if cfg.Load.Verify {
		for _, sig := range table {
			if err := library.VerifySignature(sig); err != nil {
				return err
			}
			log.Debug("verified export", "symbol", sig.Name, "kind", sig.Kind)
		}
	}

	bindings, err := library.Bind(table)
	if err != nil {
		return err
	}
	log.Debug("bound exports", "count", len(table))

	producer, err := bindings.Producer(cfg.Symbols.Get)
	if err != nil {
		return err
	}
	got, err := producer.Call()
	if err != nil {
		return fmt.Errorf("call %s: %w", producer.Name(), err)
	}
	log.Debug("called producer", "symbol", producer.Name(), "result", got)
	fmt.Fprintln(cmd.OutOrStdout(), got)

	consumer, err := bindings.Consumer(cfg.Symbols.Print)
	if err != nil {
		return err
	}
	if err := consumer.Call(value); err != nil {
		return fmt.Errorf("call %s: %w", consumer.Name(), err)
	}
	log.Debug("called consumer", "symbol", consumer.Name(), "value", value)
	return nil
}

func openLibrary(cfg *config.Config, log *slog.Logger) (*nativecall.Library, error) {
	log.Debug("loading library", "path", cfg.Library, "from_memory", cfg.Load.Memory)
	if cfg.Load.Memory {
		return nativecall.LoadFile(cfg.Library)
	}
	return nativecall.Load(cfg.Library)
}
