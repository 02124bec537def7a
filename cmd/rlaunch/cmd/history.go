package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dmarquez/rlaunch/pkg/store"
)

var (
	historyLimit  int
	historyFormat string
	historyDBFlag string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Launch history",
	Long:  `Commands for inspecting past trainer launches recorded by rlaunch run.`,
}

var historyListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List recent launches",
	RunE:         runHistoryList,
	SilenceUsage: true,
}

var historyShowCmd = &cobra.Command{
	Use:          "show <launch-id>",
	Short:        "Show one launch in full",
	Args:         cobra.ExactArgs(1),
	RunE:         runHistoryShow,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.PersistentFlags().StringVar(&historyDBFlag, "history-db", "", "Launch history database path")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum launches to list")
	historyListCmd.Flags().StringVar(&historyFormat, "output", "table", "Output format: table or json")
}

func openHistory() (store.Store, error) {
	path := historyDBPath(historyDBFlag)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no launch history at %s", path)
	}
	return store.NewStore(store.Config{Type: "sqlite", Path: path})
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	historyStore, err := openHistory()
	if err != nil {
		return err
	}
	defer historyStore.Close()

	records, err := historyStore.ListLaunches(historyLimit)
	if err != nil {
		return err
	}

	if historyFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Launch", "Run ID", "Engine", "Procs", "Tune", "Status", "Exit", "Started", "Duration")

	for _, r := range records {
		table.Append(
			shortID(r.ID),
			r.RunID,
			r.Engine,
			fmt.Sprintf("%d", r.NumProcesses),
			fmt.Sprintf("%v", r.Tune),
			string(r.Status),
			fmt.Sprintf("%d", r.ExitCode),
			r.StartedAt.Format(time.RFC3339),
			fmt.Sprintf("%.0fs", r.Duration().Seconds()),
		)
	}

	table.Render()
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	historyStore, err := openHistory()
	if err != nil {
		return err
	}
	defer historyStore.Close()

	record, err := historyStore.GetLaunch(args[0])
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(record)
}

// shortID trims a UUID for table display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
