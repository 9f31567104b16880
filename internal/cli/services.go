package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/mediadb/internal/core/services"
	"github.com/example/mediadb/internal/core/tagfilter"
)

// ServicesCmd returns the services command
func ServicesCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "Manage the service registry",
	}
	cmd.AddCommand(servicesListCmd(s))
	cmd.AddCommand(servicesAddCmd(s))
	cmd.AddCommand(servicesRemoveCmd(s))
	cmd.AddCommand(servicesInfoCmd(s))
	cmd.AddCommand(servicesPredicatesCmd(s))
	return cmd
}

func servicesListCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.Open()
			if err != nil {
				return err
			}
			_, err = c.RegistryAdapter(cmd.OutOrStdout()).List(cmd.Context())
			return err
		},
	}
}

func servicesAddCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "add <type> <name>",
		Short: "Add a service",
		Long: `Add a service with a generated key. Types that can be added:
  local_tag, local_rating_like, local_rating_numerical, tag_repository, file_repository`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceType, err := services.ParseType(args[0])
			if err != nil {
				return err
			}

			c, err := s.Open()
			if err != nil {
				return err
			}
			_, err = c.RegistryAdapter(cmd.OutOrStdout()).Add(cmd.Context(), serviceType, args[1])
			return err
		},
	}
}

func servicesRemoveCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove a service, keeping its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseServiceKey(args[0])
			if err != nil {
				return err
			}

			c, err := s.Open()
			if err != nil {
				return err
			}
			return c.RegistryAdapter(cmd.OutOrStdout()).Remove(cmd.Context(), key)
		},
	}
}

func servicesInfoCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "info <key>",
		Short: "Show counts for a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseServiceKey(args[0])
			if err != nil {
				return err
			}

			c, err := s.Open()
			if err != nil {
				return err
			}
			_, err = c.SearchAdapter(cmd.OutOrStdout()).ServiceInfo(cmd.Context(), key)
			return err
		},
	}
}

func servicesPredicatesCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "predicates <key>",
		Short: "List the system predicates a file service offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseServiceKey(args[0])
			if err != nil {
				return err
			}

			c, err := s.Open()
			if err != nil {
				return err
			}
			_, err = c.SearchAdapter(cmd.OutOrStdout()).Predicates(cmd.Context(), key)
			return err
		},
	}
}

// FilterCmd returns the filter command
func FilterCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Show or set a tag service's tag filter",
	}
	cmd.AddCommand(filterShowCmd(s))
	cmd.AddCommand(filterSetCmd(s))
	return cmd
}

func filterShowCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <service>",
		Short: "Show a tag filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseServiceKey(args[0])
			if err != nil {
				return err
			}

			c, err := s.Open()
			if err != nil {
				return err
			}
			_, err = c.RegistryAdapter(cmd.OutOrStdout()).ShowFilter(cmd.Context(), key)
			return err
		},
	}
}

func filterSetCmd(s *Session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <service>",
		Short: "Replace a tag filter",
		Long: `Replace a tag filter. A slice is a tag, a namespace followed by ':', ':' for
all namespaced tags, or '' for all unnamespaced tags. Passing no slices clears
the filter.

Examples:
  mediadb filter set local_tags --blacklist ":" --whitelist "series:"
  mediadb filter set local_tags --blacklist "meta:spoiler"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseServiceKey(args[0])
			if err != nil {
				return err
			}
			whitelist, _ := cmd.Flags().GetStringArray("whitelist")
			blacklist, _ := cmd.Flags().GetStringArray("blacklist")

			filter := tagfilter.New()
			for _, slice := range blacklist {
				filter.SetRule(slice, tagfilter.Blacklist)
			}
			for _, slice := range whitelist {
				if filter.Rules()[slice] == tagfilter.Blacklist {
					return fmt.Errorf("slice '%s' cannot be both whitelisted and blacklisted", slice)
				}
				filter.SetRule(slice, tagfilter.Whitelist)
			}

			c, err := s.Open()
			if err != nil {
				return err
			}
			return c.RegistryAdapter(cmd.OutOrStdout()).SetFilter(cmd.Context(), key, filter)
		},
	}
	cmd.Flags().StringArray("whitelist", nil, "Slice to always allow (repeatable)")
	cmd.Flags().StringArray("blacklist", nil, "Slice to block (repeatable)")
	return cmd
}
