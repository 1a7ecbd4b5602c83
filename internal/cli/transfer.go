package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTransferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <code> <from> <to> <amount>",
		Short: "Move money from one player to another",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[3])
			if err != nil {
				return err
			}

			req := map[string]any{
				"from_player_name": args[1],
				"to_player_name":   args[2],
				"amount":           amount,
			}
			var result TransferResult

			if err := client.Post(cmd.Context(), gamePath(args[0], "transfers"), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newBankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Move money between a player and the bank",
	}

	cmd.AddCommand(newBankFlagCmd("take", "Take money from the bank"))
	cmd.AddCommand(newBankFlagCmd("pay", "Pay money to the bank"))

	return cmd
}

func newBankFlagCmd(flag, short string) *cobra.Command {
	return &cobra.Command{
		Use:   flag + " <code> <player> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}

			req := map[string]any{
				"player_name": args[1],
				"amount":      amount,
				"flag":        flag,
			}
			var result TransferResult

			if err := client.Post(cmd.Context(), gamePath(args[0], "bank"), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func parseAmount(raw string) (int64, error) {
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("amount must be a positive integer, got %q", raw)
	}
	return amount, nil
}
