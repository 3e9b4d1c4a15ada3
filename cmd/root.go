package cmd

import (
	"fmt"
	"os"

	"github.com/douhashi/better-labels/internal/logger"
	"github.com/douhashi/better-labels/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	apiURL  string
	rootCmd *cobra.Command
	appLog  logger.Logger = logger.NewNop()
)

func init() {
	rootCmd = NewRootCmd()
}

// NewRootCmd creates a new root command with all subcommands
func NewRootCmd() *cobra.Command {
	cmd := newRootCmd()
	cmd.AddCommand(newLabelsCmd())
	cmd.AddCommand(newIssueCmd())
	cmd.AddCommand(newToggleCmd())
	cmd.AddCommand(newSelectCmd())
	cmd.AddCommand(newEditCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "better-labels",
		Short: "Issueにラベルを付け外しするCLI",
		Long: `better-labelsは、ラベル管理APIからラベルの一覧を取得し、
GitHubのIssueにラベルを付け外しするCLIツールです。`,
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}

			if verbose {
				os.Setenv("DEBUG", "true")
			}
			var err error
			appLog, err = logger.NewFromEnv(logger.WithOutput(cmd.ErrOrStderr()))
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "設定ファイルのパス")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "詳細出力")
	cmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "ラベル管理APIのベースURL")

	viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))

	return cmd
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig は設定ファイルの場所を決める。値の読み込みは loadConfig で行う
func initConfig() error {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to access config file: %w", err)
		}
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		viper.AddConfigPath(home + "/.config/better-labels")
		viper.AddConfigPath(home)
		viper.SetConfigName("better-labels")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}
