package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/learning-insights-api/internal/insights"
)

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Forecast a subject score",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			daysAhead, _ := cmd.Flags().GetInt("days-ahead")
			minSamples, _ := cmd.Flags().GetInt("min-samples")
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			if daysAhead < 0 || daysAhead > 365 {
				return fmt.Errorf("--days-ahead must be between 0 and 365")
			}

			fx, err := loadFixture(cmd)
			if err != nil {
				return err
			}
			logr := cliLogger(cmd)
			defer logr.Sync() //nolint:errcheck

			predictor := insights.NewPredictor(insights.PredictorConfig{MinSamplesForModel: minSamples})
			result := predictor.PredictContext(cmd.Context(), fx.Scores, fx.Plans, subject, daysAhead)
			logr.Debug("prediction computed",
				zap.String("subject", subject),
				zap.String("estimator", string(result.Estimator)),
				zap.Bool("fallback", result.Fallback),
			)
			return writeJSON(cmd, result)
		},
	}
	cmd.Flags().StringP("subject", "s", "", "Subject to forecast")
	cmd.Flags().Int("days-ahead", 30, "Forecast horizon in days")
	cmd.Flags().Int("min-samples", insights.DefaultMinSamplesForModel, "Records needed before the model estimator is used")
	return cmd
}

func newRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank catalog content for the fixture student",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			limit, _ := cmd.Flags().GetInt("limit")
			reasons, _ := cmd.Flags().GetBool("reasons")

			fx, err := loadFixture(cmd)
			if err != nil {
				return err
			}
			result := insights.RecommendContent(insights.ContentQuery{
				Scores:         fx.Scores,
				Catalog:        fx.Catalog,
				Plans:          fx.Plans,
				SubjectFilter:  subject,
				Limit:          limit,
				IncludeReasons: reasons,
			})
			return writeJSON(cmd, result)
		},
	}
	cmd.Flags().StringP("subject", "s", "", "Restrict to one subject")
	cmd.Flags().IntP("limit", "n", 10, "Maximum items (0 for all)")
	cmd.Flags().Bool("reasons", true, "Attach human readable reasons")
	return cmd
}

func newPeersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Recommend content studied by similar students",
		RunE: func(cmd *cobra.Command, args []string) error {
			student, _ := cmd.Flags().GetString("student")
			limit, _ := cmd.Flags().GetInt("limit")
			minCommon, _ := cmd.Flags().GetInt("min-common")
			if student == "" {
				return fmt.Errorf("--student is required")
			}

			fx, err := loadFixture(cmd)
			if err != nil {
				return err
			}
			matches := insights.FindSimilar(student, fx.StudyRecords, minCommon)
			items := insights.RecommendFromPeers(student, insights.PeerIDs(matches), fx.StudyRecords, fx.Catalog, limit)
			return writeJSON(cmd, map[string]interface{}{
				"similar_students": matches,
				"items":            items,
			})
		},
	}
	cmd.Flags().String("student", "", "Target student ID")
	cmd.Flags().IntP("limit", "n", 10, "Maximum items (0 for all)")
	cmd.Flags().Int("min-common", 2, "Minimum shared items for a peer")
	return cmd
}
