// Copyright Medscrub Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"medscrub/internal/detector"
)

var anonymizeCmd = &cobra.Command{
	Use:   "anonymize [text-file]",
	Short: "De-identify a text document",
	Long: `Run the recognizer ensemble over a plain-text document and print the
text with every detected entity replaced by a <TYPE> placeholder.

Reads from stdin when the file argument is "-" or omitted.`,
	Example: `  # De-identify a discharge letter
  medscrub anonymize brief.txt

  # Pipe text through, show what was found
  cat brief.txt | medscrub anonymize --entities

  # Machine-readable output
  medscrub anonymize brief.txt --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnonymize,
}

func init() {
	rootCmd.AddCommand(anonymizeCmd)

	anonymizeCmd.Flags().Bool("entities", false, "List detected entities with context")
	anonymizeCmd.Flags().Bool("json", false, "Output as JSON")
}

func runAnonymize(cmd *cobra.Command, args []string) error {
	showEntities, _ := cmd.Flags().GetBool("entities")
	jsonOut, _ := cmd.Flags().GetBool("json")

	text, err := readTextArg(args)
	if err != nil {
		return err
	}

	result, err := buildEngine().Anonymize(text)
	if err != nil {
		return err
	}

	if jsonOut {
		payload := struct {
			AnonymizedText string       `json:"anonymized_text"`
			Entities       []jsonEntity `json:"entities"`
		}{AnonymizedText: result.AnonymizedText}
		for _, e := range result.Entities {
			payload.Entities = append(payload.Entities, jsonEntity{
				Text:  e.Text,
				Type:  string(e.Type),
				Start: e.Start,
				End:   e.End,
				Score: e.Score,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	fmt.Println(result.AnonymizedText)

	if showEntities {
		fmt.Println()
		if len(result.Entities) == 0 {
			fmt.Println("No entities detected.")
			return nil
		}
		typeColor := color.New(color.FgCyan, color.Bold)
		for _, e := range result.Entities {
			fmt.Printf("%s  [%d:%d] score=%.2f  …%s…\n",
				typeColor.Sprint(e.Type), e.Start, e.End, e.Score,
				detector.Context(text, e))
		}
	}
	return nil
}

type jsonEntity struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// readTextArg reads the document text from the named file, or from
// stdin for "-" or no argument.
func readTextArg(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}
