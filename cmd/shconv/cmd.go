package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/batchatco/go-native-shc/internal"
	"github.com/batchatco/go-native-shc/shc"
	"github.com/batchatco/go-native-shc/shc/api"
	"github.com/batchatco/go-native-shc/shc/coef"
	"github.com/batchatco/go-native-shc/shc/shindex"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var logger = internal.NewLogger("shconv")

type option struct {
	name, usage, shorthand string
	defaultVal             any
	flagsets               []*pflag.FlagSet
}

func addFlags(options []option) {
	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			default:
				panic(fmt.Errorf("invalid default type %T for %s", v, option.name))
			}
		}
	}
}

// newRoot builds the command tree. Output goes to out.
func newRoot(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "shconv",
		Short: "Inspect and convert spherical harmonic coefficient files.",
		Long: `shconv reads spherical harmonic coefficient files in the standard (META),
ICGEM (.gfc) and GRACE GSM dialects, optionally compressed (.gz, .zst, .lz4),
and prints or converts them.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}
	root.SetOut(out)

	detectCmd := &cobra.Command{
		Use:   "detect FILE...",
		Short: "Print the dialect and compression of files.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDetect,
	}
	infoCmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Print the attributes of a file.",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}
	dumpCmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Print one line per coefficient.",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}
	convertCmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Convert a file to another dialect or compression.",
		Args:  cobra.ExactArgs(2),
		RunE:  runConvert,
	}
	root.AddCommand(detectCmd, infoCmd, dumpCmd, convertCmd)

	readers := []*pflag.FlagSet{infoCmd.Flags(), dumpCmd.Flags(), convertCmd.Flags()}
	addFlags([]option{
		{
			name: "config",
			usage: `config is a .toml or .yaml file holding defaults for the
flags, keyed by flag name.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{root.PersistentFlags()},
		},
		{
			name:       "log-level",
			usage:      "log-level is 0 (fatal), 1 (error), 2 (warn) or 3 (info).",
			defaultVal: int(internal.LogLevelDefault),
			flagsets:   []*pflag.FlagSet{root.PersistentFlags()},
		},
		{
			name:       "strict",
			usage:      "strict refuses files whose dialect can only be guessed.",
			defaultVal: false,
			flagsets:   append([]*pflag.FlagSet{detectCmd.Flags()}, readers...),
		},
		{
			name:       "dialect",
			usage:      "dialect of the input: auto, standard, icgem or gsm.",
			shorthand:  "d",
			defaultVal: "auto",
			flagsets:   readers,
		},
		{
			name:       "max-degree",
			usage:      "max-degree truncates the coefficients; a negative value keeps all.",
			shorthand:  "n",
			defaultVal: shc.AllDegrees,
			flagsets:   readers,
		},
		{
			name:       "errors",
			usage:      "errors loads (and for convert, writes) the uncertainties.",
			shorthand:  "e",
			defaultVal: false,
			flagsets:   readers,
		},
		{
			name:       "epoch",
			usage:      "epoch is the center epoch for files that carry none, e.g. 2010-01-01.",
			defaultVal: "",
			flagsets:   readers,
		},
		{
			name:       "guide",
			usage:      "guide is the storage order: nmt (degree-major) or tmn (order-major).",
			defaultVal: "nmt",
			flagsets:   []*pflag.FlagSet{dumpCmd.Flags()},
		},
		{
			name:       "degvar",
			usage:      "degvar also prints the degree variances.",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{infoCmd.Flags()},
		},
		{
			name:       "to",
			usage:      "to is the output dialect; auto picks icgem for .gfc and standard otherwise.",
			shorthand:  "t",
			defaultVal: "auto",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
	})
	return root
}

// setup applies the config file and the log level.
func setup(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	path, err := flags.GetString("config")
	if err != nil {
		return err
	}
	if path != "" {
		cfg, err := loadConfig(path)
		if err != nil {
			return err
		}
		unused, err := applyConfig(flags, cfg)
		if err != nil {
			return err
		}
		if len(unused) > 0 {
			sort.Strings(unused)
			logger.Warnf("%s: ignoring %v for %s", path, unused, cmd.Name())
		}
	}
	level, err := flags.GetInt("log-level")
	if err != nil {
		return err
	}
	if level < int(internal.LevelMin) || level > int(internal.LevelMax) {
		return fmt.Errorf("log-level %d not in [%d,%d]", level, internal.LevelMin, internal.LevelMax)
	}
	shc.SetLogLevel(level)
	return nil
}

func readOptions(flags *pflag.FlagSet) (opts shc.Options, err error) {
	dialect, _ := flags.GetString("dialect")
	if opts.Dialect, err = api.ParseDialect(dialect); err != nil {
		return opts, err
	}
	if n, _ := flags.GetInt("max-degree"); n >= 0 {
		opts.MaxDegree = shc.Degree(n)
	}
	opts.WithErrors, _ = flags.GetBool("errors")
	opts.Strict, _ = flags.GetBool("strict")
	if epoch, _ := flags.GetString("epoch"); epoch != "" {
		if opts.Epoch, err = cast.ToTimeE(epoch); err != nil {
			return opts, fmt.Errorf("epoch: %w", err)
		}
	}
	if flags.Lookup("guide") != nil {
		guide, _ := flags.GetString("guide")
		if opts.Guide, err = shindex.ParseKind(guide); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")
	out := cmd.OutOrStdout()
	for _, path := range args {
		f, err := shc.Detect(path, strict)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(out, "%s\t%v\t%v\n", path, f.Dialect, f.Compression)
	}
	return nil
}

func formatValue(v any) string {
	if tm, ok := v.(time.Time); ok {
		return tm.UTC().Format(time.RFC3339)
	}
	return cast.ToString(v)
}

func runInfo(cmd *cobra.Command, args []string) error {
	opts, err := readOptions(cmd.Flags())
	if err != nil {
		return err
	}
	degvar, _ := cmd.Flags().GetBool("degvar")
	opts.HeaderOnly = !degvar
	res, err := shc.Read(args[0], opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, key := range res.Attributes.Keys() {
		v, _ := res.Attributes.Get(key)
		fmt.Fprintf(out, "%-24s %s\n", key, formatValue(v))
	}
	if degvar {
		fmt.Fprintf(out, "%-24s %v\n", "uncertainties", res.Set.HasSigmas())
		for n, dv := range res.Set.DegreeVariances() {
			fmt.Fprintf(out, "degvar %4d %.12e\n", n, dv)
		}
	}
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	opts, err := readOptions(cmd.Flags())
	if err != nil {
		return err
	}
	res, err := shc.Read(args[0], opts)
	if err != nil {
		return err
	}
	dump(cmd.OutOrStdout(), res.Set)
	return nil
}

// dump prints the set in storage order.
func dump(out io.Writer, set *coef.Set) {
	idx := set.Index()
	for off := 0; off < idx.Size(); off++ {
		tr, err := idx.Triple(off)
		if err != nil {
			logger.Error(err)
			return
		}
		if set.HasSigmas() {
			fmt.Fprintf(out, "%d %d %v %.12e %.12e\n", tr.N, tr.M, tr.T, set.At(off), set.SigmaAt(off))
		} else {
			fmt.Fprintf(out, "%d %d %v %.12e\n", tr.N, tr.M, tr.T, set.At(off))
		}
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	opts, err := readOptions(cmd.Flags())
	if err != nil {
		return err
	}
	to, _ := cmd.Flags().GetString("to")
	dialect, err := api.ParseDialect(to)
	if err != nil {
		return err
	}
	res, err := shc.Read(args[0], opts)
	if err != nil {
		return err
	}
	wopts := shc.WriteOptions{Dialect: dialect, WithErrors: opts.WithErrors && res.Set.HasSigmas()}
	if opts.WithErrors && !res.Set.HasSigmas() {
		logger.Warnf("%s has no uncertainties", args[0])
	}
	if err := shc.Write(args[1], res.Set, res.Attributes, wopts); err != nil {
		return err
	}
	logger.Infof("wrote %s (nmax %d)", args[1], res.Set.Nmax())
	return nil
}
