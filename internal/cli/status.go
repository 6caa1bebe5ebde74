package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/honeywatch/internal/control"
	"github.com/vietddude/honeywatch/internal/core/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending candidates and the blacklist",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	stores, err := control.OpenStores(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = stores.Close()
	}()

	registry, err := state.LoadRegistry(ctx, stores.Candidates)
	if err != nil {
		slog.Error("Failed to load candidates", "error", err)
		os.Exit(1)
	}
	blacklist, err := state.LoadBlacklist(ctx, stores.Blacklist)
	if err != nil {
		slog.Error("Failed to load blacklist", "error", err)
		os.Exit(1)
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TOKEN\tPAIR\tOWNER\tAGE\tDUE")
	for _, c := range registry.Pending() {
		age := c.Age(now).Truncate(time.Second)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
			c.Address.Hex(), c.PairAddress.Hex(), c.Owner.Hex(), age, age >= cfg.Scheduler.WaitPeriod)
	}
	_ = w.Flush()

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "OWNER\tTOKEN")
	for _, e := range blacklist.Entries() {
		for _, t := range e.Tokens {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", e.Owner.Hex(), t.Hex())
		}
	}
	_ = w.Flush()
}
