package cmd

import (
	"fmt"

	"github.com/douhashi/better-labels/internal/api"
	"github.com/douhashi/better-labels/internal/config"
	"github.com/douhashi/better-labels/internal/issue"
	"github.com/douhashi/better-labels/internal/label"
	"github.com/douhashi/better-labels/internal/selector"
	"github.com/spf13/viper"
)

// loadConfig は設定ファイル、環境変数、フラグの順に設定を読み込み検証する
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.LoadOrDefault(viper.ConfigFileUsed())

	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newAPIClient(cfg *config.Config) (*api.Client, error) {
	client, err := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithOrdering(cfg.Ordering()),
		api.WithLogger(appLog),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, nil
}

func parseIssue(arg string) (issue.Key, error) {
	key, err := issue.Parse(arg)
	if err != nil {
		return "", fmt.Errorf("invalid issue %q: %w", arg, err)
	}
	return key, nil
}

// findLabel はIDまたは名前でラベルを探す。IDの一致を優先する
func findLabel(labels []label.Label, ref string) (label.Label, bool) {
	for _, l := range labels {
		if l.ID.String() == ref {
			return l, true
		}
	}
	for _, l := range labels {
		if l.Name == ref {
			return l, true
		}
	}
	return label.Label{}, false
}

func labelsOf(rows []selector.Row) []label.Label {
	labels := make([]label.Label, len(rows))
	for i, row := range rows {
		labels[i] = row.Label
	}
	return labels
}
