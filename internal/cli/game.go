package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game commands",
	}

	cmd.AddCommand(newGameCreateCmd())
	cmd.AddCommand(newGameGetCmd())
	cmd.AddCommand(newGameJoinCmd())
	cmd.AddCommand(newGameHistoryCmd())

	return cmd
}

func newGameCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <player-name>",
		Short: "Create a new game and join it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"player_name": args[0]}
			var result JoinResult

			if err := client.Post(cmd.Context(), "/api/v1/games", req, &result); err != nil {
				return err
			}
			if err := remember(result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show players and balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game

			if err := client.Get(cmd.Context(), gamePath(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGameJoinCmd() *cobra.Command {
	var playerID string

	cmd := &cobra.Command{
		Use:   "join <code> <player-name>",
		Short: "Join a game, creating it if needed",
		Long: `Join a game as the named player. The game is created when the code is new.

The issued player id is saved to the identity file, and joining the same game
again reuses it so you come back as the same player.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, name := args[0], args[1]

			if playerID == "" {
				stored, ok, err := cfg.Identity(code)
				if err != nil {
					return fmt.Errorf("failed to read identity file: %w", err)
				}
				if ok && stored.PlayerName == name {
					playerID = stored.PlayerID
				}
			}

			req := map[string]string{"player_name": name}
			if playerID != "" {
				req["player_id"] = playerID
			}
			var result JoinResult

			if err := client.Post(cmd.Context(), gamePath(code, "join"), req, &result); err != nil {
				return err
			}
			if err := remember(result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&playerID, "player-id", "", "Rejoin with this player id instead of the saved one")

	return cmd
}

func newGameHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <code>",
		Short: "List recorded transfers, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result History

			path := fmt.Sprintf("%s?limit=%d", gamePath(args[0], "history"), limit)
			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Number of most recent transfers to show")

	return cmd
}

// remember saves the joined player to the identity file
func remember(result JoinResult) error {
	name := ""
	for _, p := range result.Game.Players {
		if p.ID == result.PlayerID {
			name = p.Name
		}
	}
	if err := cfg.SaveIdentity(result.Game.Code, Identity{PlayerID: result.PlayerID, PlayerName: name}); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}
