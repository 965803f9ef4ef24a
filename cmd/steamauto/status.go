package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vuquang23/steamauto/automation"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the accounts of a running instance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Status.Listen == "" {
			return fmt.Errorf("status.listen is not configured")
		}

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, "http://"+cfg.Status.Listen+"/accounts", nil)
		if err != nil {
			return err
		}
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("is steamauto running? %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status server returned %s", resp.Status)
		}

		var snaps []automation.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snaps); err != nil {
			return err
		}
		dump(snaps)
		printTable([]string{"account", "state", "accepted", "confirmed", "errors", "pending", "session_expires", "last_error"}, statusRows(snaps))
		return nil
	},
}

func statusRows(snaps []automation.Snapshot) [][]string {
	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		expires := "-"
		if s.Session.HasSession {
			expires = s.Session.ExpiresAt.Local().Format("2006-01-02 15:04")
		}
		if s.Session.NeedsReauth {
			expires = "needs reauth"
		}
		rows = append(rows, []string{
			s.Name,
			stateColor(s.State.String()),
			strconv.Itoa(s.Counters.Accepted),
			strconv.Itoa(s.Counters.Confirmed),
			strconv.Itoa(s.Counters.Errors),
			strconv.Itoa(s.PendingTrades),
			expires,
			s.LastError,
		})
	}
	return rows
}
