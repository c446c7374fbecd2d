package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/weiwei-tsao/overlay-review/internal/business/overlay"
	"github.com/weiwei-tsao/overlay-review/internal/platform/importapi"
	"github.com/weiwei-tsao/overlay-review/pkg/model"
)

// aggregateResult is what `overlayctl aggregate` prints.
type aggregateResult struct {
	Groups          []model.AggregatedSuggestion `json:"groups"`
	Buckets         model.SeverityBuckets        `json:"buckets"`
	Percentages     model.SeverityPercentages    `json:"percentages"`
	VisibleStatuses []model.ReviewStatus         `json:"visibleStatuses"`
}

func newAggregateCmd() *cobra.Command {
	var (
		file       string
		statuses   string
		output     string
		summaryOff bool
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Reconcile an exported suggestion list",
		Long:  `Read overlay suggestions in upstream wire format, group them and print severity buckets.`,
		Example: `  # Aggregate an export, counting only findings still needing review
  overlayctl aggregate -f suggestions.json --status pending,rejected

  # Read from stdin and print YAML
  curl -s $API/projects/p1/overlay-suggestions | overlayctl aggregate -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			visible, err := model.ParseStatusFilter(statuses)
			if err != nil {
				return err
			}
			if len(visible) == 0 {
				visible = model.AllReviewStatuses
			}

			in, closeFn, err := openInput(cmd, file)
			if err != nil {
				return err
			}
			defer closeFn()

			suggestions, err := importapi.DecodeSuggestions(in)
			if err != nil {
				return err
			}

			groups := overlay.Aggregate(suggestions)
			buckets := overlay.CountSeverityBuckets(groups, visible)
			result := aggregateResult{
				Groups:          groups,
				Buckets:         buckets,
				Percentages:     overlay.CalculateSeverityPercentages(buckets),
				VisibleStatuses: visible,
			}
			if summaryOff {
				result.Groups = nil
			}

			logger := cliLogger(cmd)
			logger.Debug().
				Int("suggestions", len(suggestions)).
				Int("groups", len(groups)).
				Int("counted", buckets.Total()).
				Msg("aggregated")

			return writeResult(cmd.OutOrStdout(), format, result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "suggestion export to read, - for stdin")
	cmd.Flags().StringVar(&statuses, "status", "", "comma-separated statuses to count (default all)")
	cmd.Flags().StringVarP(&output, "output", "o", string(FormatJSON), "output format (json or yaml)")
	cmd.Flags().BoolVar(&summaryOff, "summary-only", false, "omit the grouped findings")
	return cmd
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
