// File: cmd/saved.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/notecrawl/internal/store"
)

func (c *cli) newSavedCmd() *cobra.Command {
	var keyword string
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Lists saved data files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := store.List(c.cfg.Storage().OutputDir, keyword)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "case-insensitive keyword filter")
	return cmd
}
