package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/smazurov/lockkeys/internal/keyboard"
	"github.com/spf13/cobra"
)

// OpenFunc returns the configured keyboard backend. It runs after flags and config
// are loaded.
type OpenFunc func() (*Keyboard, error)

type keyState struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Known   bool   `json:"known"`
}

// CreateStatusCmd prints the state of every configured key.
func CreateStatusCmd(open OpenFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the configured keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kb, err := open()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			statuses, err := kb.Source.Query(ctx)
			if err != nil {
				return fmt.Errorf("query keyboard status: %w", err)
			}

			states := make([]keyState, 0, len(kb.Keys))
			for _, key := range kb.Keys {
				status, ok := keyboard.Find(statuses, key.Name)
				states = append(states, keyState{Name: key.Name, Enabled: ok && status.On(), Known: ok})
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(states)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSTATE")
			for _, s := range states {
				state := "unknown"
				if s.Known {
					state = string(keyboard.StateOf(s.Enabled))
				}
				fmt.Fprintf(w, "%s\t%s\n", s.Name, state)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON instead of a table")
	cmd.Flags().Duration("timeout", 10*time.Second, "Give up after this long")
	return cmd
}

// CreateSetCmd drives one key to on or off.
func CreateSetCmd(open OpenFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> on|off",
		Short: "Turn a key on or off",
		Example: `  lockkeys set "Num Lock" on
  lockkeys set "Scroll Lock" off`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseState(args[1])
			if err != nil {
				return err
			}
			kb, err := open()
			if err != nil {
				return err
			}
			key, err := kb.Key(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			c := keyboard.NewController(key, kb.Source)
			on, err := c.Set(ctx, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key.Name, keyboard.StateOf(on))
			return nil
		},
	}
	cmd.Flags().Duration("timeout", 10*time.Second, "Give up after this long")
	return cmd
}

// CreateResetKeymapCmd runs the keymap preparation of the backend again.
func CreateResetKeymapCmd(open OpenFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-keymap",
		Short: "Map Scroll Lock to a modifier again, e.g. after replugging a keyboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kb, err := open()
			if err != nil {
				return err
			}
			if kb.ResetKeymap == nil {
				return fmt.Errorf("%w for source %s", keyboard.ErrKeymapResetUnsupported, kb.Kind)
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := kb.ResetKeymap(ctx); err != nil {
				return fmt.Errorf("reset keymap: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "keymap reset")
			return nil
		},
	}
	cmd.Flags().Duration("timeout", 10*time.Second, "Give up after this long")
	return cmd
}

func parseState(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, errors.New(`state must be "on" or "off"`)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout, err := cmd.Flags().GetDuration("timeout"); err == nil && timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
