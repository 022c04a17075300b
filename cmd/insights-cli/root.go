package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/learning-insights-api/internal/models"
)

// fixture is an offline snapshot of the rows the engines read from the database.
type fixture struct {
	Scores       []models.ScoreRecord `json:"scores"`
	Plans        []models.PlanRecord  `json:"plans"`
	Catalog      []models.ContentItem `json:"catalog"`
	StudyRecords []models.StudyRecord `json:"study_records"`
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "insights-cli",
		Short:         "Run the learning insight engines against a JSON fixture",
		Long:          "insights-cli evaluates score predictions and content recommendations offline, reading scores, plans, catalog and study records from a fixture file.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringP("fixture", "f", "", "Path to the JSON fixture (- for stdin)")
	root.PersistentFlags().Bool("verbose", false, "Log engine diagnostics to stderr")
	_ = root.MarkPersistentFlagRequired("fixture")

	root.AddCommand(newPredictCmd())
	root.AddCommand(newRecommendCmd())
	root.AddCommand(newPeersCmd())
	return root
}

func loadFixture(cmd *cobra.Command) (*fixture, error) {
	path, _ := cmd.Flags().GetString("fixture")

	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open fixture: %w", err)
		}
		defer f.Close()
		r = f
	}

	var fx fixture
	if err := json.NewDecoder(r).Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &fx, nil
}

func cliLogger(cmd *cobra.Command) *zap.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
