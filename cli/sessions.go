package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/harness/internal/domain"
)

// apiClient calls the test session HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type apiResponse struct {
	Success   bool                 `json:"success"`
	Error     string               `json:"error"`
	Sessions  []domain.TestSession `json:"sessions"`
	Session   *domain.TestSession  `json:"session"`
	HasMore   bool                 `json:"hasMore"`
	Stats     *domain.SessionStats `json:"stats"`
	SessionID string               `json:"sessionId"`
}

func (c *apiClient) do(method, path string, query url.Values) (*apiResponse, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response (%d): %w", resp.StatusCode, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, out.Error)
	}
	return &out, nil
}

func sessionsCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"s"},
		Short:   "Browse stored test sessions",
		Long: `Browse the test sessions saved after each finished run.

Examples:
  harness-cli sessions list --limit 20
  harness-cli sessions search defamation
  harness-cli sessions get 01J9Z3...
  harness-cli sessions delete 01J9Z3...
  harness-cli sessions stats`,
	}
	cmd.PersistentFlags().StringVar(&server, "server", "http://localhost:17000", "Harness HTTP address")

	api := func() *apiClient { return newAPIClient(server) }

	cmd.AddCommand(
		sessionsListCmd(api),
		sessionsGetCmd(api),
		sessionsSearchCmd(api),
		sessionsDeleteCmd(api),
		sessionsStatsCmd(api),
	)
	return cmd
}

func sessionsListCmd(api func() *apiClient) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", fmt.Sprint(limit))
			q.Set("offset", fmt.Sprint(offset))
			resp, err := api().do(http.MethodGet, "/api/test-sessions", q)
			if err != nil {
				return err
			}
			printSessions(os.Stdout, resp.Sessions)
			if resp.HasMore {
				fmt.Println(color.HiBlackString("more sessions available, use --offset %d", offset+limit))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum sessions to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Sessions to skip")
	return cmd
}

func sessionsGetCmd(api func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "get <session-id>",
		Short: "Print one session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := api().do(http.MethodGet, "/api/test-sessions/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(resp.Session, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func sessionsSearchCmd(api func() *apiClient) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Find sessions mentioning text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", fmt.Sprint(limit))
			text := strings.Join(args, " ")
			resp, err := api().do(http.MethodGet, "/api/test-sessions/search/"+url.PathEscape(text), q)
			if err != nil {
				return err
			}
			printSessions(os.Stdout, resp.Sessions)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum sessions to show")
	return cmd
}

func sessionsDeleteCmd(api func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <session-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := api().do(http.MethodDelete, "/api/test-sessions/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			fmt.Println(color.GreenString("Deleted %s", args[0]))
			return nil
		},
	}
}

func sessionsStatsCmd(api func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show session count and average score",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := api().do(http.MethodGet, "/api/test-sessions-stats", nil)
			if err != nil {
				return err
			}
			if resp.Stats == nil {
				return fmt.Errorf("server returned no stats")
			}
			fmt.Printf("Sessions:      %d\n", resp.Stats.TotalSessions)
			fmt.Printf("Average score: %.2f\n", resp.Stats.AverageScore)
			return nil
		},
	}
}

func printSessions(w io.Writer, sessions []domain.TestSession) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions found")
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %s  %-10s %-4s tasks %d/%d  score %.1f\n",
			color.CyanString("%s", s.SessionID),
			s.Timestamp.Local().Format("2006-01-02 15:04"),
			s.AgentType, s.Country,
			s.CompletedTasks, s.TotalTasks, s.OverallScore)
	}
}
