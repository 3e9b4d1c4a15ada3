package cmd

import (
	"fmt"

	"github.com/douhashi/better-labels/internal/render"
	"github.com/douhashi/better-labels/internal/selector"
	"github.com/spf13/cobra"
)

func newSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select <issue-url|path>",
		Short: "ラベルを対話的に付け外しする",
		Long: `ラベルの一覧を表示し、入力された番号の行のラベルを付け外しします。

  <番号>   ラベルを付与/解除
  /<文字>  ラベルを絞り込む（"/" だけで解除）
  q        終了`,
		Args: cobra.ExactArgs(1),
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

			term := render.NewTerminal(cmd.OutOrStdout())
			view := selector.New(client, key, term, selector.WithLogger(appLog))
			if err := view.Open(cmd.Context()); err != nil {
				return err
			}

			if err := term.Run(cmd.Context(), cmd.InOrStdin()); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			applied := view.Applied()
			fmt.Fprintf(cmd.OutOrStdout(), "%d labels applied to %s\n", len(applied), key)
			term.PrintLabels(applied)
			return nil
		},
	}
	return cmd
}
