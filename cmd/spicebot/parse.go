package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spicebot/internal/chatbot"
	"github.com/Veraticus/spicebot/internal/cli"
	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <message>",
		Short: "Show the intent and entities the chatbot extracts from a message",
		Example: `  spicebot parse "Tôi vừa chi 50k mua thức ăn"
  spicebot parse --json "hôm qua nhận lương 15 triệu"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runParse,
	}

	cmd.Flags().Bool("json", false, "Print the result as JSON")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	message := strings.Join(args, " ")

	result := chatbot.NewDefaultParser().Parse(message, time.Now())

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(result)
	}

	_, err := fmt.Fprintln(out, cli.RenderParse(message, result))
	return err
}
