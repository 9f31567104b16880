package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/ports/primary"
)

// ImportCmd returns the import command
func ImportCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <paths...>",
		Short: "Import files into the store",
		Long: `Hash, probe and store files. Files already in the store are reported as
redundant; files deleted earlier are reported as deleted unless --allow-deleted
is given, in which case they are restored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			allowDeleted, _ := cmd.Flags().GetBool("allow-deleted")
			archive, _ := cmd.Flags().GetBool("archive")

			c, err := s.Open()
			if err != nil {
				return err
			}

			_, err = c.ImportAdapter(cmd.OutOrStdout()).Import(cmd.Context(), args, primary.ImportOptions{
				AllowDeleted: allowDeleted,
				Archive:      archive,
			})
			return err
		},
	}
	cmd.Flags().Bool("allow-deleted", false, "Undelete files that were deleted before")
	cmd.Flags().Bool("archive", false, "Skip the inbox for new files")
	return cmd
}

// HashStatusCmd returns the hash-status command
func HashStatusCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-status <sha256|md5|sha1|sha512> <hex>",
		Short: "Show what the store knows about a digest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashType, err := files.ParseHashType(args[0])
			if err != nil {
				return err
			}
			digest, err := hex.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("invalid digest '%s': %w", args[1], err)
			}

			c, err := s.Open()
			if err != nil {
				return err
			}

			_, err = c.ImportAdapter(cmd.OutOrStdout()).HashStatus(cmd.Context(), hashType, digest)
			return err
		},
	}
}
