package cmd

import (
	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop the in-memory index cache",
		Long: `Drop the cached index so the next command reloads the snapshot.
The snapshot on disk is kept; use 'von reindex' to rebuild it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openArchive(nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			a.holder.Clear()
			writer(cmd.OutOrStdout()).Success("Index cache cleared")
			return nil
		},
	}
}
