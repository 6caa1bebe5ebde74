package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/vietddude/honeywatch/internal/control"
	"github.com/vietddude/honeywatch/internal/core/config"
	"github.com/vietddude/honeywatch/internal/core/state"
	"github.com/vietddude/honeywatch/internal/screening/health"
)

var adminURL string

var blacklistAddCmd = &cobra.Command{
	Use:   "blacklist-add [owner] [token]",
	Short: "Blacklist a token under an owner by hand",
	Long: `Blacklists a token under an owner. When a guard is running on this host the
entry goes through its admin route so the running process sees it at once.
Without a running guard the entry is written to the configured store, which
is refused for the memory driver.`,
	Args: cobra.ExactArgs(2),
	Run:  runBlacklistAdd,
}

func init() {
	blacklistAddCmd.Flags().StringVar(&adminURL, "admin-url", "", "base URL of the running guard (default http://127.0.0.1:<server.port>)")
	rootCmd.AddCommand(blacklistAddCmd)
}

// errGuardNotRunning means nothing answered on the admin address.
var errGuardNotRunning = errors.New("guard not running")

func runBlacklistAdd(cmd *cobra.Command, args []string) {
	for _, a := range args {
		if !common.IsHexAddress(a) {
			fmt.Printf("Invalid address: %s\n", a)
			os.Exit(1)
		}
	}
	owner, token := common.HexToAddress(args[0]), common.HexToAddress(args[1])

	cfg := loadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	base := adminURL
	if base == "" {
		base = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	}

	added, err := postBlacklist(ctx, http.DefaultClient, base, cfg.Server.AdminToken, owner, token)
	switch {
	case err == nil:
		slog.Debug("Blacklisted through the running guard", "url", base)
	case errors.Is(err, errGuardNotRunning):
		slog.Info("No running guard answered, writing to the store", "url", base, "driver", cfg.Storage.Driver)
		added, err = addToStore(ctx, cfg, owner, token)
	}
	if err != nil {
		slog.Error("Failed to blacklist token", "error", err)
		os.Exit(1)
	}

	if !added {
		fmt.Printf("%s is already blacklisted under %s\n", token.Hex(), owner.Hex())
		return
	}
	fmt.Printf("Blacklisted %s under %s\n", token.Hex(), owner.Hex())
}

// postBlacklist sends the entry to a running guard. It returns
// errGuardNotRunning when the connection is refused.
func postBlacklist(ctx context.Context, client *http.Client, base, adminToken string, owner, token common.Address) (bool, error) {
	body, err := json.Marshal(health.BlacklistRequest{Owner: owner.Hex(), Token: token.Hex()})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+health.BlacklistPath, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("invalid admin url %q: %w", base, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return false, fmt.Errorf("%w: %w", errGuardNotRunning, err)
		}
		return false, fmt.Errorf("admin request failed: %w", err)
	}
	defer resp.Body.Close()

	var out health.BlacklistResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("admin response %s: %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return false, fmt.Errorf("admin request rejected (%s): %s", resp.Status, out.Error)
	}
	return out.Added, nil
}

// addToStore writes the entry directly. Only safe while no guard runs.
func addToStore(ctx context.Context, cfg *config.AppConfig, owner, token common.Address) (bool, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		return false, fmt.Errorf("the memory driver keeps no state outside a running guard")
	}

	stores, err := control.OpenStores(ctx, cfg)
	if err != nil {
		return false, fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		_ = stores.Close()
	}()

	blacklist, err := state.LoadBlacklist(ctx, stores.Blacklist)
	if err != nil {
		return false, err
	}
	return blacklist.Add(ctx, owner, token)
}
