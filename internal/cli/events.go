package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events <code>",
		Short: "Stream live balance updates from a game",
		Long: `Connect to the game's SSE endpoint and print every update as it happens.

Each gameUpdate event carries the full roster with balances and the
transfer that produced it.

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// SSEEvent represents a parsed SSE event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

// liveUpdate is the envelope carried by a gameUpdate event
type liveUpdate struct {
	Type    string `json:"type"`
	Payload struct {
		Code         string    `json:"code"`
		Version      uint64    `json:"version"`
		Players      []Player  `json:"players"`
		LastTransfer *Transfer `json:"lastTransfer"`
	} `json:"payload"`
}

func streamEvents(code string, jsonOutput bool) error {
	// SSE is on the real-time router, not the API router
	target := strings.TrimSuffix(cfg.ServerURL, "/") + "/games/" + url.PathEscape(code) + "/events"

	// Set up cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No timeout for SSE
	httpClient := &http.Client{}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Code != "" {
			errResp.Error.Status = resp.StatusCode
			return &errResp.Error
		}
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if !jsonOutput {
		fmt.Printf("Watching game %s\n", strings.ToUpper(code))
	}

	// Parse SSE stream
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// End of event; comments and retry hints leave no event name
			if currentEvent != "" {
				printEvent(currentEvent, strings.Join(dataLines, "\n"), jsonOutput)
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Println("Disconnected")
	}
	return nil
}

func printEvent(event, data string, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		evt := SSEEvent{
			Time:  now,
			Event: event,
			Data:  data,
		}
		jsonData, _ := json.Marshal(evt)
		fmt.Println(string(jsonData))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")

	var update liveUpdate
	if err := json.Unmarshal([]byte(data), &update); err != nil {
		fmt.Printf("[%s] %s: %s\n", timestamp, event, strings.ReplaceAll(data, "\n", " "))
		return
	}

	parts := make([]string, len(update.Payload.Players))
	for i, p := range update.Payload.Players {
		parts[i] = fmt.Sprintf("%s=%d", p.Name, p.Balance)
	}
	line := fmt.Sprintf("[%s] v%d %s", timestamp, update.Payload.Version, strings.Join(parts, " "))
	if t := update.Payload.LastTransfer; t != nil {
		line += " | " + describeTransfer(*t)
	}
	fmt.Println(line)
}
