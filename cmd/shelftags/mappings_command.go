package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newMappingsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var filter string

	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Show the shelf to tag mapping in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			mapping := cfg.Mapping()
			needle := strings.ToLower(strings.TrimSpace(filter))

			shelves := make([]string, 0, len(mapping))
			for _, shelf := range mapping.Shelves() {
				if needle != "" && !strings.Contains(shelf, needle) && !tagsContain(mapping[shelf], needle) {
					continue
				}
				shelves = append(shelves, shelf)
			}

			if asJSON {
				out := make(map[string][]string, len(shelves))
				for _, shelf := range shelves {
					out[shelf] = mapping[shelf]
				}
				return writeJSON(cmd, out)
			}

			rows := make([][]string, 0, len(shelves))
			for _, shelf := range shelves {
				rows = append(rows, []string{shelf, strings.Join(mapping[shelf], ", ")})
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No shelves match")
				return nil
			}
			fmt.Fprintln(out, renderTable(out, []string{"Shelf", "Tags"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&filter, "filter", "", "Only show shelves or tags containing this text")
	return cmd
}

func tagsContain(tags []string, needle string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
