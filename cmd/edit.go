package cmd

import (
	"fmt"

	"github.com/douhashi/better-labels/internal/label"
	"github.com/douhashi/better-labels/internal/render"
	"github.com/spf13/cobra"
)

func newEditCmd() *cobra.Command {
	var add, remove []string

	cmd := &cobra.Command{
		Use:   "edit <issue-url|path>",
		Short: "Issueのラベルをまとめて付け外しする",
		Long: `--add のラベルを付与してから --remove のラベルを外します。
ラベルはIDまたは名前で指定します。`,
		Example: `  better-labels edit owner/repo/issues/12 --add bug,p0 --remove wontfix`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(add) == 0 && len(remove) == 0 {
				return fmt.Errorf("nothing to change: use --add or --remove")
			}

			key, err := parseIssue(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			all, err := client.ListLabels(cmd.Context())
			if err != nil {
				return err
			}
			toAdd, err := resolveLabels(all, add)
			if err != nil {
				return err
			}
			toRemove, err := resolveLabels(all, remove)
			if err != nil {
				return err
			}

			applied, err := client.PatchLabels(cmd.Context(), key.IssueKey(), toAdd, toRemove)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d labels applied to %s\n", len(applied), key)
			render.NewTerminal(cmd.OutOrStdout()).PrintLabels(applied)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&add, "add", nil, "付与するラベル（IDまたは名前）")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "外すラベル（IDまたは名前）")
	return cmd
}

func resolveLabels(all []label.Label, refs []string) ([]label.Label, error) {
	out := make([]label.Label, 0, len(refs))
	for _, ref := range refs {
		l, ok := findLabel(all, ref)
		if !ok {
			return nil, fmt.Errorf("label %q not found", ref)
		}
		out = append(out, l)
	}
	return out, nil
}
