package cmd

import (
	"fmt"

	"github.com/douhashi/better-labels/internal/render"
	"github.com/douhashi/better-labels/internal/selector"
	"github.com/spf13/cobra"
)

func newToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <issue-url|path> <label-id|name>",
		Short: "Issueのラベルを付け外しする",
		Long:  `付与されていないラベルは付与し、付与されているラベルは外します。`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			// 行の描画は標準エラー出力へ、結果だけを標準出力へ出す
			sink := render.NewTerminal(cmd.ErrOrStderr())
			view := selector.New(client, key, sink, selector.WithLogger(appLog))
			if err := view.Open(cmd.Context()); err != nil {
				return err
			}

			target, ok := findLabel(labelsOf(view.Rows()), args[1])
			if !ok {
				return fmt.Errorf("label %q not found", args[1])
			}

			if err := view.Click(cmd.Context(), target.ID); err != nil {
				return err
			}

			for _, row := range view.Rows() {
				if row.Label.ID == target.ID {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", target.DisplayText(), row.State)
				}
			}
			return nil
		},
	}
	return cmd
}
