package cmd

import (
	"fmt"

	"github.com/douhashi/better-labels/internal/render"
	"github.com/spf13/cobra"
)

func newIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue <issue-url|path>",
		Short: "Issueに付与されているラベルを表示",
		Long: `Issueに付与されているラベルを表示します。
IssueはGitHubのIssueページのURL、またはそのパス（owner/repo/issues/12）で指定します。`,
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

			labels, err := client.ListIssueLabels(cmd.Context(), key.IssueKey())
			if err != nil {
				return err
			}
			if len(labels) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "ラベルは付与されていません")
				return nil
			}

			render.NewTerminal(cmd.OutOrStdout()).PrintLabels(labels)
			return nil
		},
	}
	return cmd
}
