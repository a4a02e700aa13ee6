// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"medscrub/internal/quotes"
)

var locateCmd = &cobra.Command{
	Use:   "locate [text-file]",
	Short: "Find quoted passages in a document",
	Long: `Localize one or more quotes inside a document text. Quotes may contain
the elision marker "[...]"; each fragment is matched independently with
an edit-distance search that tolerates OCR noise.

Reads the document from stdin when the file argument is "-" or omitted.
Each --quote takes the form "label=passage"; a bare passage gets an
empty label.`,
	Example: `  # Find the passage a billing code was derived from
  medscrub locate brief.txt --quote "2345=Operation am Leistenkanal"

  # Elided quote, two fragments
  medscrub locate brief.txt --quote "2404=Exzision [...] in Lokalanästhesie"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)

	locateCmd.Flags().StringArray("quote", nil, `Quote to localize, "label=passage" (repeatable)`)
	locateCmd.Flags().Bool("json", false, "Output segments as JSON")
}

func runLocate(cmd *cobra.Command, args []string) error {
	rawQuotes, _ := cmd.Flags().GetStringArray("quote")
	jsonOut, _ := cmd.Flags().GetBool("json")

	if len(rawQuotes) == 0 {
		return fmt.Errorf("at least one --quote is required")
	}

	text, err := readTextArg(args)
	if err != nil {
		return err
	}

	quoteList := make([]quotes.Quote, 0, len(rawQuotes))
	for _, raw := range rawQuotes {
		label, passage, found := strings.Cut(raw, "=")
		if !found {
			label, passage = "", raw
		}
		quoteList = append(quoteList, quotes.Quote{Text: passage, Label: label})
	}

	segments := quotes.NewLocalizer().Locate(quoteList, text)

	if jsonOut {
		type jsonSegment struct {
			Text    string `json:"text"`
			Label   string `json:"label,omitempty"`
			Matched bool   `json:"matched"`
		}
		out := make([]jsonSegment, 0, len(segments))
		for _, s := range segments {
			out = append(out, jsonSegment{Text: s.Text, Label: s.Label, Matched: s.Matched})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	highlight := color.New(color.BgYellow, color.FgBlack)
	label := color.New(color.FgCyan, color.Bold)
	for _, s := range segments {
		if !s.Matched {
			fmt.Print(s.Text)
			continue
		}
		if s.Label != "" {
			label.Printf("[%s]", s.Label)
		}
		highlight.Print(s.Text)
	}
	fmt.Println()
	return nil
}
