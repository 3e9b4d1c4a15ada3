package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "ラベルでIssueを検索するURLを表示",
		Long: `名前にqueryを含むラベル、またはqueryという項目を持つラベルが付いたIssueを
GitHubで開く検索URLを表示します。`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			found, err := client.SearchIssues(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if found == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "ラベルの付いたIssueはありません")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), found)
			return nil
		},
	}
	return cmd
}
