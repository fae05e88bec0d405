package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shelftags/internal/logging"
	"shelftags/internal/metadata"
	"shelftags/internal/metrics"
	"shelftags/internal/plugin"
	"shelftags/internal/textutil"
	"shelftags/internal/worker"
)

type tagsOutput struct {
	VendorID            string          `json:"vendor_id"`
	Outcome             string          `json:"outcome"`
	Tags                []string        `json:"tags"`
	Votes               map[string]int  `json:"votes,omitempty"`
	PercentageBase      float64         `json:"percentage_base"`
	PercentageThreshold float64         `json:"percentage_threshold"`
	Record              metadata.Record `json:"record"`
}

func newTagsCommand(ctx *commandContext) *cobra.Command {
	var showVotes bool
	var asJSON bool
	var showMetrics bool
	var title string
	var authors string

	cmd := &cobra.Command{
		Use:   "tags <goodreads-id>",
		Short: "Fetch shelves for a book and show the tags that qualify",
		Long: `Fetch the Goodreads shelves page for a book, map shelves to tags, and apply
the configured thresholds. Nothing is merged with other lookups; this is the
standalone path, useful for tuning thresholds and mappings.

Examples:
  shelftags tags 5907
  shelftags tags 5907 --votes
  shelftags tags 5907 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg = cfg.Clone()
			cfg.Integration.Enabled = false

			logger, err := ctx.logger(cmd, cfg)
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}

			m := metrics.New()
			p, err := plugin.New(plugin.Options{Config: cfg, Logger: logger, Metrics: m})
			if err != nil {
				return err
			}
			defer p.Close()

			id := strings.TrimSpace(args[0])
			seed := metadata.Record{Title: strings.TrimSpace(title), Authors: textutil.SplitList(authors)}
			exp, err := p.Explain(cmd.Context(), id, seed)
			if err != nil {
				return err
			}
			if exp.Outcome.IsFailure() {
				logger.Debug("shelf lookup failed",
					logging.String(logging.FieldItemID, id),
					logging.String("outcome", string(exp.Outcome)),
				)
				return fmt.Errorf("shelf tags for %s: %w", id, exp.Err)
			}

			if asJSON {
				payload := tagsOutput{
					VendorID:            id,
					Outcome:             string(exp.Outcome),
					Tags:                append([]string{}, exp.Record.Tags...),
					PercentageBase:      exp.Report.Base,
					PercentageThreshold: exp.Report.PercentageThreshold,
					Record:              exp.Record,
				}
				if showVotes {
					payload.Votes = exp.Report.Mapped
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if exp.Outcome == worker.OutcomeEmpty {
				fmt.Fprintf(out, "No tags qualified for %s\n", id)
			} else if showVotes {
				fmt.Fprintln(out, renderTable(out, []string{"Tag", "Votes", "Kept"}, voteRows(exp), []columnAlignment{alignLeft, alignRight, alignLeft}))
			} else {
				rows := make([][]string, 0, len(exp.Record.Tags))
				for _, tag := range exp.Record.Tags {
					rows = append(rows, []string{tag})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Tag"}, rows, nil))
			}
			fmt.Fprintf(out, "Percentage base %.1f, threshold %.1f\n", exp.Report.Base, exp.Report.PercentageThreshold)

			if showMetrics {
				samples, err := m.Snapshot()
				if err != nil {
					return fmt.Errorf("gather metrics: %w", err)
				}
				rows := make([][]string, 0, len(samples))
				for _, s := range samples {
					rows = append(rows, []string{s.Name, s.Labels, strconv.FormatFloat(s.Value, 'f', -1, 64)})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Metric", "Labels", "Value"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showVotes, "votes", false, "Show vote counts for every mapped tag")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print counters collected during the run")
	cmd.Flags().StringVar(&title, "title", "", "Title to carry into the emitted record")
	cmd.Flags().StringVar(&authors, "authors", "", "Comma separated authors to carry into the emitted record")
	return cmd
}

// voteRows lists every mapped tag, highest votes first.
func voteRows(exp plugin.Explanation) [][]string {
	kept := make(map[string]struct{}, len(exp.Record.Tags))
	for _, tag := range exp.Record.Tags {
		kept[tag] = struct{}{}
	}
	names := make([]string, 0, len(exp.Report.Mapped))
	for name := range exp.Report.Mapped {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := exp.Report.Mapped[names[i]], exp.Report.Mapped[names[j]]
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		_, ok := kept[name]
		rows = append(rows, []string{name, strconv.Itoa(exp.Report.Mapped[name]), yesNo(ok)})
	}
	return rows
}
