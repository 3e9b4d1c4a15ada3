package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLabelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "ラベルの一覧を表示",
		Long:  `ラベル管理APIに登録されている全てのラベルを、カテゴリの優先順に表示します。`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newAPIClient(cfg)
			if err != nil {
				return err
			}

			labels, err := client.ListLabels(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tNAME\tDESCRIPTION")
			for _, l := range labels {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.ID, l.Fields.Category, l.DisplayText(), l.Fields.Description)
			}
			return w.Flush()
		},
	}
	return cmd
}
