package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chatpack/chatpack/internal/parser"
	"github.com/chatpack/chatpack/internal/pipeline"
	"github.com/chatpack/chatpack/internal/writer"
)

const version = "1.0.0"

var (
	flagOutput      string
	flagFormat      string
	flagTimestamps  bool
	flagReplies     bool
	flagEdited      bool
	flagIDs         bool
	flagNoMerge     bool
	flagAfter       string
	flagBefore      string
	flagFrom        string
	flagNoStreaming bool
	flagProgress    bool
	flagQuiet       bool
	flagSystem      bool
)

var rootCmd = &cobra.Command{
	Use:     "chatpack <source> <input>",
	Short:   "Convert chat exports to LLM-friendly formats",
	Version: version,
	Long: `Chatpack parses chat exports from Telegram, WhatsApp, Instagram and
Discord and converts them to CSV, JSON or JSONL, streaming with bounded
memory so very large exports stay cheap to process.

Sources: telegram (tg), whatsapp (wa), instagram (ig), discord (dc)`,
	Example: `  chatpack tg export.json                     # Telegram to CSV
  chatpack wa chat.txt -o chat.csv            # WhatsApp to CSV
  chatpack ig messages.json -f json           # Instagram to JSON
  chatpack dc export.json --after 2024-01-01  # Discord with date filter
  chatpack tg export.json --no-streaming      # Load entire file into memory`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	cobra.OnInitialize(initConfig)

	f := rootCmd.Flags()
	f.StringVarP(&flagOutput, "output", "o", "", "output file path (default optimized_chat.<format>)")
	f.StringVarP(&flagFormat, "format", "f", "csv", "output format: csv, json or jsonl")
	f.BoolVarP(&flagTimestamps, "timestamps", "t", false, "include message timestamps")
	f.BoolVarP(&flagReplies, "replies", "r", false, "include reply-to references")
	f.BoolVarP(&flagEdited, "edited", "e", false, "include edit timestamps")
	f.BoolVar(&flagIDs, "ids", false, "include message IDs")
	f.BoolVar(&flagNoMerge, "no-merge", false, "disable merging of consecutive messages")
	f.StringVar(&flagAfter, "after", "", "only messages after this date (YYYY-MM-DD)")
	f.StringVar(&flagBefore, "before", "", "only messages before this date (YYYY-MM-DD)")
	f.StringVar(&flagFrom, "from", "", "only messages from this sender")
	f.BoolVar(&flagNoStreaming, "no-streaming", false, "load the entire file into memory instead of streaming")
	f.BoolVarP(&flagProgress, "progress", "p", false, "show processing progress")
	f.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	f.BoolVar(&flagSystem, "system", false, "keep platform service messages")
}

// initConfig layers optional defaults under the flags: an optional
// ~/.config/chatpack/config.yaml and CHATPACK_* environment variables.
// A missing config file is not an error.
func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.config/chatpack")
	}
	viper.SetEnvPrefix("chatpack")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	for _, key := range []string{"format", "output"} {
		if viper.IsSet(key) && !rootCmd.Flags().Changed(key) {
			_ = rootCmd.Flags().Set(key, viper.GetString(key))
		}
	}
	// The config file expresses the positive setting; merge: false is the
	// file-based form of --no-merge.
	if viper.IsSet("merge") && !viper.GetBool("merge") && !rootCmd.Flags().Changed("no-merge") {
		_ = rootCmd.Flags().Set("no-merge", "true")
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := newLogger(flagQuiet)

	platform, err := parser.ParsePlatform(args[0])
	if err != nil {
		return err
	}
	input := args[1]
	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("input file not found: %s", input)
	}

	format, err := writer.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	output := flagOutput
	if output == "" {
		output = "optimized_chat." + format.Ext()
	}

	filter, err := buildFilter()
	if err != nil {
		return err
	}

	cfg := pipeline.Config{
		Platform: platform,
		Input:    input,
		Output:   output,
		Format:   format,
		Fields: writer.FieldSelection{
			Timestamps: flagTimestamps,
			Replies:    flagReplies,
			Edited:     flagEdited,
			IDs:        flagIDs,
		},
		Filter:        filter,
		NoMerge:       flagNoMerge,
		NoStreaming:   flagNoStreaming,
		IncludeSystem: flagSystem,
		Logger:        logger,
	}
	if flagProgress && !flagQuiet {
		cfg.Progress = func(done int) {
			if done%10000 == 0 {
				logger.Info("processing", "messages", done)
			}
		}
	}

	logger.Info("parsing export", "source", platform.String(), "input", input)

	stats, err := pipeline.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	logger.Info("done",
		"parsed", stats.Parsed,
		"skipped", stats.Skipped,
		"filtered", stats.Filtered,
		"written", stats.Written,
		"output", output,
		"format", format.String(),
		"size", humanize.Bytes(uint64(stats.OutputBytes)),
	)
	return nil
}

// buildFilter turns the date/sender flags into pipeline predicates.
// --before is inclusive through the end of the named day.
func buildFilter() (pipeline.Filter, error) {
	var filter pipeline.Filter
	if flagAfter != "" {
		from, err := time.Parse("2006-01-02", flagAfter)
		if err != nil {
			return filter, fmt.Errorf("invalid --after date %q, expected YYYY-MM-DD", flagAfter)
		}
		filter.From = from.UTC()
	}
	if flagBefore != "" {
		to, err := time.Parse("2006-01-02", flagBefore)
		if err != nil {
			return filter, fmt.Errorf("invalid --before date %q, expected YYYY-MM-DD", flagBefore)
		}
		filter.To = to.UTC().Add(24*time.Hour - time.Nanosecond)
	}
	filter.Sender = flagFrom
	return filter, nil
}

func newLogger(quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
