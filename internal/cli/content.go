package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/mediadb/internal/core/content"
	"github.com/example/mediadb/internal/core/services"
)

// ContentCmd returns the content command
func ContentCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Change tags and file membership",
		Long: `Apply content updates. Every command applies one atomic batch: either all
of it lands or none of it does.`,
	}

	for _, action := range []content.Action{
		content.Add, content.Delete, content.Pend, content.RescindPend,
		content.Petition, content.RescindPetition,
	} {
		cmd.AddCommand(mappingCmd(s, action))
	}
	cmd.AddCommand(fileActionCmd(s, content.Archive, "Move files out of the inbox"))
	cmd.AddCommand(fileActionCmd(s, content.Inbox, "Move files back into the inbox"))
	cmd.AddCommand(deleteFileCmd(s))

	return cmd
}

func mappingCmd(s *Session, action content.Action) *cobra.Command {
	name := strings.ReplaceAll(string(action), "_", "-")
	cmd := &cobra.Command{
		Use:   name + " <service> <tag> <hashes...>",
		Short: strings.ReplaceAll(string(action), "_", " ") + " a tag mapping",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseServiceKey(args[0])
			if err != nil {
				return err
			}
			hashes, err := parseHashes(args[2:])
			if err != nil {
				return err
			}

			update := content.NewMappingUpdate(action, args[1], hashes...)
			if action == content.Petition {
				update.Reason, _ = cmd.Flags().GetString("reason")
			}

			c, err := s.Open()
			if err != nil {
				return err
			}
			_, err = c.ContentAdapter(cmd.OutOrStdout()).Apply(cmd.Context(), content.Batch{key: {update}})
			return err
		},
	}
	if action == content.Petition {
		cmd.Flags().String("reason", "", "Why the mapping should be removed")
	}
	return cmd
}

func fileActionCmd(s *Session, action content.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <hashes...>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashes, err := parseHashes(args)
			if err != nil {
				return err
			}

			c, err := s.Open()
			if err != nil {
				return err
			}
			batch := content.Batch{services.LocalFilesKey: {content.NewFileUpdate(action, hashes...)}}
			_, err = c.ContentAdapter(cmd.OutOrStdout()).Apply(cmd.Context(), batch)
			return err
		},
	}
}

func deleteFileCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-file <service> <hashes...>",
		Short: "Delete files from a file service",
		Long: `Delete files from a file service. Deleting from local_files moves the file
to the trash; deleting from the trash removes it from every local service.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseServiceKey(args[0])
			if err != nil {
				return err
			}
			hashes, err := parseHashes(args[1:])
			if err != nil {
				return err
			}

			c, err := s.Open()
			if err != nil {
				return err
			}
			batch := content.Batch{key: {content.NewFileUpdate(content.Delete, hashes...)}}
			_, err = c.ContentAdapter(cmd.OutOrStdout()).Apply(cmd.Context(), batch)
			return err
		},
	}
}

// RateCmd returns the rate command
func RateCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <service> <value|none> <hashes...>",
		Short: "Set or clear a rating",
		Long: `Set a rating on files. Like services take 0 or 1; numerical services take a
value between 0 and 1. Use 'none' to clear the rating.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseServiceKey(args[0])
			if err != nil {
				return err
			}
			rating, err := parseRating(args[1])
			if err != nil {
				return err
			}
			hashes, err := parseHashes(args[2:])
			if err != nil {
				return err
			}

			c, err := s.Open()
			if err != nil {
				return err
			}
			batch := content.Batch{key: {content.NewRatingUpdate(rating, hashes...)}}
			_, err = c.ContentAdapter(cmd.OutOrStdout()).Apply(cmd.Context(), batch)
			return err
		},
	}
}

// PendingCmd returns the pending command
func PendingCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "pending [service]",
		Short: "Show pending uploads and petitions",
		Long: `Without arguments, count pending work per repository service. With a
service key, list the pending mappings grouped by tag.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.Open()
			if err != nil {
				return err
			}
			adapter := c.ContentAdapter(cmd.OutOrStdout())

			if len(args) == 0 {
				_, err = adapter.NumsPending(cmd.Context())
				return err
			}

			key, err := parseServiceKey(args[0])
			if err != nil {
				return err
			}
			_, err = adapter.Pending(cmd.Context(), key)
			return err
		},
	}
}

// DownloadsCmd returns the downloads command
func DownloadsCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "downloads",
		Short: "List files waiting to be fetched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.Open()
			if err != nil {
				return err
			}
			return c.ContentAdapter(cmd.OutOrStdout()).Downloads(cmd.Context())
		},
	}
}
