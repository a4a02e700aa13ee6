// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"medscrub/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show document processing status",
	Long: `List all documents in the local store with their processing state, or
show one document in detail when an id is given.`,
	Example: `  # List everything
  medscrub status

  # One document, including its stored result
  medscrub status 7f3c2a1e-... --result`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("result", false, "Print the stored result JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	showResult, _ := cmd.Flags().GetBool("result")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 1 {
		rec, err := st.Get(args[0])
		if err != nil {
			return err
		}
		printRecord(rec)
		if showResult && len(rec.Result) > 0 {
			fmt.Println()
			os.Stdout.Write(rec.Result)
			fmt.Println()
		}
		return nil
	}

	records, err := st.List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No documents in store.")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %-11s  %s  %s\n",
			rec.ID, statusColor(rec.Status), rec.UpdatedAt.Format("2006-01-02 15:04:05"), rec.Filename)
	}
	return nil
}

func printRecord(rec store.Record) {
	fmt.Printf("Document:  %s\n", rec.ID)
	fmt.Printf("Filename:  %s\n", rec.Filename)
	fmt.Printf("Status:    %s\n", statusColor(rec.Status))
	if rec.Error != "" {
		fmt.Printf("Error:     %s\n", color.RedString(rec.Error))
	}
	if rec.RedactedPath != "" {
		fmt.Printf("Redacted:  %s\n", rec.RedactedPath)
	}
	fmt.Printf("Created:   %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:   %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func statusColor(s store.Status) string {
	switch s {
	case store.StatusCompleted:
		return color.GreenString(string(s))
	case store.StatusFailed:
		return color.RedString(string(s))
	case store.StatusProcessing, store.StatusQueued:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}
