package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/karune-engine/internal/dataset"
	"github.com/spigell/karune-engine/internal/filtering"
	"github.com/spigell/karune-engine/internal/logger"
	"github.com/spigell/karune-engine/internal/matching"
	"github.com/spigell/karune-engine/internal/records"
)

const (
	PromptSponsors   = "Show sponsor recommendations"
	PromptVolunteers = "Show volunteer recommendations"
	PromptFilters    = "Show filters"
	PromptDump       = "Dump recommendations to file"
	PromptExit       = "Exit"

	outputText = "text"
	outputJSON = "json"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptSponsors, PromptVolunteers, PromptFilters, PromptDump, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank sponsors and volunteers for a need from a dataset",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindFilterFlags(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("dataset", "f", "", "dataset file with needs, sponsors and volunteers (default is the built-in sample)")
	matchCmd.Flags().IntP("need-index", "n", 0, "index of the need in the dataset to match")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "print all recommendations without the interactive menu")
	matchCmd.Flags().StringP("output", "o", outputText, "output format: text or json")
	matchCmd.Flags().Float64("min-score", 0, "drop recommendations scoring under this value")
	matchCmd.Flags().StringP("exclude-file", "e", "", "file listing sponsor and volunteer ids to never recommend")

	viper.BindPFlag("dataset", matchCmd.Flags().Lookup("dataset"))
	viper.BindPFlag("need-index", matchCmd.Flags().Lookup("need-index"))
}

// runMatch is the batch/demo entry point of the cli.
func runMatch(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	output := strings.ToLower(strings.TrimSpace(cmd.Flag("output").Value.String()))
	if output != outputText && output != outputJSON {
		logger.Fatal("unsupported output format", zap.String("output", output))
	}

	steps := filtering.Default()
	recs, err := recommend(ctx, config, steps, logger)
	if err != nil {
		if verr, ok := records.AsValidationError(err); ok {
			logger.Fatal("invalid input record",
				zap.String("record", verr.Record),
				zap.Int("index", verr.Index),
				zap.Any("fields", verr.Fields),
			)
		}
		logger.Fatal("matching failed", zap.Error(err))
	}

	out := cmd.OutOrStdout()

	if output == outputJSON {
		if err := writeJSON(out, recs); err != nil {
			logger.Fatal("writing recommendations", zap.Error(err))
		}
		return
	}

	printNeed(out, recs.Need)

	if cmd.Flag("auto-approve").Value.String() == "true" {
		printRecommendations(out, matching.KindSponsor, recs.Sponsors)
		printRecommendations(out, matching.KindVolunteer, recs.Volunteers)
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, out, logger, recs, steps); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// recommend loads the configured dataset, ranks candidates for the selected
// need and runs the filter chain over the result.
func recommend(ctx context.Context, config *Config, steps []filtering.Filter, baseLogger *zap.Logger) (*matching.Recommendations, error) {
	ds := dataset.Sample()
	if path := strings.TrimSpace(config.Dataset); path != "" {
		loaded, err := dataset.Load(path)
		if err != nil {
			return nil, err
		}
		ds = loaded
	} else {
		baseLogger.Info("using the built-in sample dataset")
	}

	batch, err := ds.Resolve(config.NeedIndex)
	if err != nil {
		return nil, err
	}

	matchLogger := logger.WithNeed(baseLogger, batch.Need).With(zap.Int("need_index", config.NeedIndex))
	matchLogger.Info("matching need",
		zap.Int("sponsors", len(batch.Sponsors)),
		zap.Int("volunteers", len(batch.Volunteers)),
	)

	recs := batch.Recommend()

	recs, err = filtering.Run(ctx, &config.Filters, filtering.Deps{Logger: matchLogger}, steps, recs)
	if err != nil {
		return nil, fmt.Errorf("filtering recommendations: %w", err)
	}

	matchLogger.Info("ranked sponsors", logger.ResultFields(matching.KindSponsor, recs.Sponsors)...)
	matchLogger.Info("ranked volunteers", logger.ResultFields(matching.KindVolunteer, recs.Volunteers)...)

	return recs, nil
}

func handleAction(action string, out io.Writer, logger *zap.Logger, recs *matching.Recommendations, steps []filtering.Filter) error {
	switch action {
	case PromptSponsors:
		printRecommendations(out, matching.KindSponsor, recs.Sponsors)
		return nil
	case PromptVolunteers:
		printRecommendations(out, matching.KindVolunteer, recs.Volunteers)
		return nil
	case PromptFilters:
		pretty, _ := json.MarshalIndent(filtering.Describe(steps), "", "  ")
		fmt.Fprintln(out, string(pretty))
		return nil
	case PromptDump:
		filename, err := dumpToTmpFile(recs)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printNeed(out io.Writer, need matching.Need) {
	fmt.Fprintf(out, "Need: location=%s category=%s quantity=%s urgency=%s\n",
		need.Location,
		need.Category,
		strconv.FormatFloat(need.Quantity, 'f', -1, 64),
		strconv.FormatFloat(need.Urgency, 'f', -1, 64),
	)
}

func printRecommendations(out io.Writer, kind matching.Kind, results []matching.MatchResult) {
	title := strings.ToUpper(string(kind[:1])) + string(kind[1:])
	fmt.Fprintf(out, "\n%s Recommendations:\n", title)

	if len(results) == 0 {
		fmt.Fprintln(out, "  none")
		return
	}

	for _, r := range results {
		fmt.Fprintf(out, "  %s\n", matching.ExplainMatch(r))
	}
}

func writeJSON(out io.Writer, recs *matching.Recommendations) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

func dumpToTmpFile(recs *matching.Recommendations) (string, error) {
	file, err := os.CreateTemp("", "recommendations_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := writeJSON(file, recs); err != nil {
		return "", err
	}
	return file.Name(), nil
}
