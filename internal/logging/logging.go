// Package logging はlogrusのグローバルロガーを設定する
package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"nagare/internal/config"
)

// Setup はログレベルと出力形式を設定する
func Setup(cfg config.LogConfig) error {
	return SetupWithOutput(cfg, os.Stderr)
}

// SetupWithOutput は出力先を指定してロガーを設定する
func SetupWithOutput(cfg config.LogConfig, out io.Writer) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("無効なログレベル: %w", err)
	}

	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("無効なログ形式: %s", cfg.Format)
	}

	log.SetLevel(level)
	log.SetOutput(out)
	return nil
}
