package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumoscope/liquid/envconfig"
	"github.com/lumoscope/liquid/store"
)

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop persisted benchmark history",
		RunE:  ClearHandler,
	}
	cmd.Flags().String("op", "", "Clear only this operation's history")
	return cmd
}

// ClearHandler drops one operation's measurements, or all of them.
func ClearHandler(cmd *cobra.Command, args []string) error {
	st, err := store.Open(envconfig.Home())
	if err != nil {
		return err
	}
	defer st.Close()

	if designation, _ := cmd.Flags().GetString("op"); designation != "" {
		if err := st.Clear(designation); err != nil {
			return err
		}
		fmt.Printf("cleared benchmark history for %s\n", designation)
		return nil
	}

	if err := st.ClearAll(); err != nil {
		return err
	}
	fmt.Println("cleared all benchmark history")
	return nil
}
