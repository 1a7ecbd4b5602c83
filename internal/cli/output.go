package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Game:
		o.printGame(v)
	case JoinResult:
		o.printJoinResult(v)
	case TransferResult:
		o.printTransferResult(v)
	case History:
		o.printHistory(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Balance   int64  `json:"balance"`
	Connected bool   `json:"connected"`
}

// Transfer response type
type Transfer struct {
	Seq    uint64    `json:"seq"`
	Kind   string    `json:"kind"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Amount int64     `json:"amount"`
	At     time.Time `json:"at,omitzero"`
}

// Game response type
type Game struct {
	Code         string    `json:"code"`
	Version      uint64    `json:"version"`
	Players      []Player  `json:"players"`
	LastTransfer *Transfer `json:"last_transfer"`
}

// JoinResult is returned by game create and game join
type JoinResult struct {
	PlayerID string `json:"player_id"`
	Rejoined bool   `json:"rejoined"`
	Game     Game   `json:"game"`
}

// TransferResult is returned by transfer and bank commands
type TransferResult struct {
	Message     string   `json:"message"`
	Transfer    Transfer `json:"transfer"`
	FromBalance *int64   `json:"from_balance,omitempty"`
	ToBalance   *int64   `json:"to_balance,omitempty"`
	Game        Game     `json:"game"`
}

// History response type
type History struct {
	Code      string     `json:"code"`
	Transfers []Transfer `json:"transfers"`
}

// HealthResult response type
type HealthResult struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (o *Output) printGame(g Game) {
	fmt.Printf("Game: %s (version %d)\n", g.Code, g.Version)
	fmt.Printf("Players (%d):\n", len(g.Players))
	for _, p := range g.Players {
		status := "offline"
		if p.Connected {
			status = "online"
		}
		fmt.Printf("  - %-16s %10d  [%s]\n", p.Name, p.Balance, status)
	}
	if g.LastTransfer != nil {
		fmt.Printf("Last transfer: %s\n", describeTransfer(*g.LastTransfer))
	}
}

func (o *Output) printJoinResult(r JoinResult) {
	if r.Rejoined {
		fmt.Printf("Rejoined game %s\n", r.Game.Code)
	} else {
		fmt.Printf("Joined game %s\n", r.Game.Code)
	}
	fmt.Printf("Player ID: %s\n", r.PlayerID)
	o.printGame(r.Game)
}

func (o *Output) printTransferResult(r TransferResult) {
	fmt.Println(r.Message)
	fmt.Printf("  %s\n", describeTransfer(r.Transfer))
	if r.FromBalance != nil {
		fmt.Printf("  %s now has %d\n", r.Transfer.From, *r.FromBalance)
	}
	if r.ToBalance != nil {
		fmt.Printf("  %s now has %d\n", r.Transfer.To, *r.ToBalance)
	}
}

func (o *Output) printHistory(h History) {
	fmt.Printf("History for %s (%d transfers):\n", h.Code, len(h.Transfers))
	for _, t := range h.Transfers {
		ts := ""
		if !t.At.IsZero() {
			ts = t.At.Format("2006-01-02 15:04:05") + " "
		}
		fmt.Printf("  %s%s\n", ts, describeTransfer(t))
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Live games: %d\n", h.Sessions)
}

func describeTransfer(t Transfer) string {
	return fmt.Sprintf("#%d %s -> %s: %d", t.Seq, t.From, t.To, t.Amount)
}
