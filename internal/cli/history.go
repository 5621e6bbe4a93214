package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/bsdetector/internal/model"
)

var (
	historyLimit int
	historyJSON  bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or clear past analyses",
	Long: `History shows past analyses. With a session user and a remote database
configured, the remote history is merged with this machine's local history.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list [validation|sentiment]",
	Short: "List history, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ := model.HistoryValidation
		if len(args) == 1 {
			var err error
			if typ, err = model.ParseHistoryType(args[0]); err != nil {
				return err
			}
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		res := a.history.Get(cmd.Context(), typ)
		if !res.Synced() {
			fmt.Fprintf(os.Stderr, "⚠️  Remote history unavailable, showing local history: %v\n\n", res.SyncErr)
		}

		items := res.Value
		if historyLimit > 0 && len(items) > historyLimit {
			items = items[:historyLimit]
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		if len(items) == 0 {
			fmt.Fprintf(out, "No %s history.\n", typ)
			return nil
		}
		for _, item := range items {
			fmt.Fprintln(out, formatHistoryItem(typ, item))
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear <validation|sentiment|all>",
	Short: "Delete history locally and, when signed in, remotely",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		if args[0] == "all" {
			res, err := a.history.ClearAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			if !res.Synced() {
				fmt.Fprintf(os.Stderr, "⚠️  Remote history not cleared: %v\n", res.SyncErr)
			}
			fmt.Fprintln(out, "✓ Cleared all history")
			return nil
		}

		typ, err := model.ParseHistoryType(args[0])
		if err != nil {
			return err
		}
		res, err := a.history.Clear(cmd.Context(), typ)
		if err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		if !res.Synced() {
			fmt.Fprintf(os.Stderr, "⚠️  Remote history not cleared: %v\n", res.SyncErr)
		}
		fmt.Fprintf(out, "✓ Cleared %s history\n", typ)
		return nil
	},
}

func formatHistoryItem(typ model.HistoryType, item model.HistoryItem) string {
	when := time.UnixMilli(item.Timestamp).Local().Format("2006-01-02 15:04")
	if typ == model.HistorySentiment {
		return fmt.Sprintf("%s  %-8s  +%d/=%d/-%d  %s", when, item.Overall, item.Positive, item.Neutral, item.Negative, truncate(item.Topic, 60))
	}
	label := verdictLabels[model.Verdict(item.Verdict)]
	if label == "" {
		label = strings.ToUpper(item.Verdict)
	}
	return fmt.Sprintf("%s  %-12s %3.0f%%  %s", when, label, item.Score*100, truncate(item.Claim, 60))
}

// truncate shortens s to at most n runes on one line
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of items (0 for all)")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "print items as JSON")
}
