// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"medscrub/internal/predictor"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the prediction service connection",
	Long: `Verify that the configured prediction service is reachable and that
the API key is accepted. Use this after changing settings.`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	if cfg.Predictor.URL == "" || cfg.Predictor.APIKey == "" {
		return fmt.Errorf("prediction service not configured, set MEDSCRUB_PREDICTOR_URL and MEDSCRUB_PREDICTOR_API_KEY")
	}

	client := predictor.New(cfg.Predictor.URL, cfg.Predictor.APIKey)
	if err := client.Ping(cmd.Context()); err != nil {
		return err
	}
	color.Green("Prediction service reachable, API key accepted.")
	return nil
}
