package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/douhashi/better-labels/internal/label"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix は環境変数のプレフィックス
	EnvPrefix = "BETTER_LABELS"

	defaultTimeout = 10 * time.Second
)

// Config はアプリケーション全体の設定
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Labels LabelsConfig `mapstructure:"labels"`
}

// APIConfig はラベルAPIの設定
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LabelsConfig はラベル表示の設定
type LabelsConfig struct {
	CategoryOrder []string `mapstructure:"category_order"`
}

// NewConfig は新しいConfigを作成する
func NewConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout: defaultTimeout,
		},
		Labels: LabelsConfig{
			CategoryOrder: append([]string(nil), label.DefaultCategoryOrder...),
		},
	}
}

// Load は設定ファイルと環境変数から設定を読み込む
// configPath が空の場合は環境変数とデフォルト値だけを使う
func (c *Config) Load(configPath string) error {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// BETTER_LABELS_API_URL も受け付ける
	v.BindEnv("api.base_url", EnvPrefix+"_API_BASE_URL", EnvPrefix+"_API_URL")

	v.SetDefault("api.base_url", c.API.BaseURL)
	v.SetDefault("api.timeout", c.API.Timeout)
	v.SetDefault("labels.category_order", c.Labels.CategoryOrder)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// スライスは要素ごとに上書きされるので、既定値はSetDefault側に任せて空にしておく
	c.Labels.CategoryOrder = nil
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// LoadOrDefault は設定ファイルを読み込み、読めない場合は環境変数とデフォルト値を使用する
func (c *Config) LoadOrDefault(configPath string) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := c.Load(configPath); err == nil {
				return
			}
		}
	}
	_ = c.Load("")
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("API base URL is required (api.base_url or " + EnvPrefix + "_API_URL)")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API base URL: %q", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return errors.New("API timeout must not be negative")
	}

	if len(c.Labels.CategoryOrder) == 0 {
		c.Labels.CategoryOrder = append([]string(nil), label.DefaultCategoryOrder...)
	}
	return nil
}

// Ordering は設定されたカテゴリ順の並び順を返す
func (c *Config) Ordering() *label.Ordering {
	return label.NewOrdering(c.Labels.CategoryOrder)
}
