// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cmd implements the medscrub command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"medscrub/internal/anonymizer"
	"medscrub/internal/config"
	"medscrub/internal/detector"
	"medscrub/internal/logger"
	"medscrub/internal/recognizers/date"
	"medscrub/internal/recognizers/financial"
	"medscrub/internal/recognizers/gender"
	"medscrub/internal/recognizers/ner"
	"medscrub/internal/version"
)

var (
	configFile string
	verbose    bool
	jsonLogs   bool
	noColor    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "medscrub",
	Short: "De-identify clinical documents and localize billing-code quotes",
	Long: `medscrub de-identifies German clinical documents, redacts detected
entities on the page scans, and maps billing-code prediction quotes
back onto the document text for review.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}

		logCfg := cfg.GetLoggerConfig()
		if verbose {
			logCfg.Level = "debug"
		}
		if jsonLogs {
			logCfg.Format = "json"
		}
		if err := logger.Setup(logCfg); err != nil {
			return err
		}

		if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
			color.NoColor = true
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// buildEngine assembles the recognizer ensemble from the configuration.
// The neural recognizer only joins when a tagger sidecar is configured;
// the regex recognizers always run.
func buildEngine() *anonymizer.Engine {
	recognizers := []detector.Recognizer{
		date.NewRecognizer(),
		financial.NewRecognizer(),
		gender.NewRecognizer(),
	}
	if cfg.NER.TaggerURL != "" {
		model := ner.NewModel(ner.Options{
			BaseURL:    cfg.NER.TaggerURL,
			WeightsURL: cfg.NER.WeightsURL,
			CachePath:  cfg.NER.CachePath,
			Logger:     logger.WithComponent("ner"),
		})
		recognizers = append(recognizers, ner.NewRecognizer(model))
	}
	return anonymizer.NewEngine(recognizers,
		anonymizer.WithThreshold(cfg.Anonymizer.Threshold),
		anonymizer.WithLogger(logger.WithComponent("anonymizer")),
	)
}
