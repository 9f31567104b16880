package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	cliadapter "github.com/example/mediadb/internal/adapters/cli"
	"github.com/example/mediadb/internal/core/files"
	"github.com/example/mediadb/internal/core/predicate"
	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tags"
	"github.com/example/mediadb/internal/ports/primary"
)

// SearchCmd returns the search command
func SearchCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <predicates...>",
		Short: "Search files by tag and system predicates",
		Long: `Search files. Every argument is one predicate and a file must match all of
them. Tags are matched as given; prefix with '-' to negate.

Examples:
  mediadb search "series:cars" "-car"
  mediadb search "system:inbox" "system:limit = 10"
  mediadb search "system:width > 1000" "system:mime image/png"
  mediadb search "character:*" --tag-service local_tags`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fileKey, _ := cmd.Flags().GetString("file-service")
			tagKey, _ := cmd.Flags().GetString("tag-service")

			c, err := s.Open()
			if err != nil {
				return err
			}

			parser := c.PredicateParser()
			preds := make([]predicate.Predicate, 0, len(args))
			for _, arg := range args {
				p, err := parser.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid predicate '%s': %w", arg, err)
				}
				preds = append(preds, p)
			}

			sc := predicate.NewSearchContext(services.Key(fileKey), services.Key(tagKey), preds...)
			_, err = c.SearchAdapter(cmd.OutOrStdout()).Search(cmd.Context(), sc)
			return err
		},
	}
	cmd.Flags().String("file-service", string(services.LocalFilesKey), "File service to search")
	cmd.Flags().String("tag-service", string(services.CombinedTagsKey), "Tag service the tag predicates read")
	return cmd
}

// InfoCmd returns the info command
func InfoCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <hash>",
		Short: "Show a file's metadata, locations, tags and ratings",
		Long: `Show a file's metadata, locations, tags and ratings.

Tag sort orders: lex-asc, lex-desc, ns-asc, ns-desc. Namespace orders group
tags by namespace and list unnamespaced tags last.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := files.ParseHash(args[0])
			if err != nil {
				return err
			}
			sortName, _ := cmd.Flags().GetString("sort")
			order, err := tags.ParseSortOrder(sortName)
			if err != nil {
				return err
			}
			hide, _ := cmd.Flags().GetBool("hide-namespaces")

			c, err := s.Open()
			if err != nil {
				return err
			}
			_, err = c.SearchAdapter(cmd.OutOrStdout()).Info(cmd.Context(), hash, cliadapter.InfoOptions{
				Sort:           order,
				HideNamespaces: hide,
			})
			return err
		},
	}
	cmd.Flags().String("sort", "lex-asc", "Tag sort order")
	cmd.Flags().Bool("hide-namespaces", false, "List subtags under a heading per namespace")
	return cmd
}

// AutocompleteCmd returns the autocomplete command
func AutocompleteCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autocomplete <text>",
		Short: "Suggest tags for partial input",
		Long: `Suggest tags with their counts. Text without '*' is treated as a prefix;
'*' matches anything. A namespace followed by ':' lists that namespace.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, _ := cmd.Flags().GetString("service")
			exact, _ := cmd.Flags().GetBool("exact")
			namespaceless, _ := cmd.Flags().GetBool("namespaceless")

			c, err := s.Open()
			if err != nil {
				return err
			}
			_, err = c.SearchAdapter(cmd.OutOrStdout()).Autocomplete(cmd.Context(), primary.SuggestRequest{
				TagService:       services.Key(key),
				Text:             args[0],
				Exact:            exact,
				AddNamespaceless: namespaceless,
			})
			return err
		},
	}
	cmd.Flags().String("service", string(services.CombinedTagsKey), "Tag service to suggest from")
	cmd.Flags().Bool("exact", false, "Match the whole tag only")
	cmd.Flags().Bool("namespaceless", false, "Also offer bare subtags of namespaced matches")
	return cmd
}
