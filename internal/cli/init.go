package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/mediadb/internal/config"
	"github.com/example/mediadb/internal/db"
)

// InitCmd returns the init command
func InitCmd(s *Session) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the mediadb store",
		Long: `Initialize the mediadb store: create the data directory, the database with
its built-in services, the client files directory, and a config file holding
the defaults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := s.LoadConfig()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initializing mediadb store at %s\n", cfg.DB.Dir)

			if _, err := s.Open(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Database ready at %s\n", db.Path(cfg.DB.Dir))

			path := s.ConfigPath
			if path == "" {
				path = config.DefaultPath(cfg.DB.Dir)
			}
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				if err := config.Save(path, cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Config written to %s\n", path)
			}

			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Next steps:")
			fmt.Fprintln(cmd.OutOrStdout(), "  mediadb import ~/Pictures/*.png")
			fmt.Fprintln(cmd.OutOrStdout(), "  mediadb search system:inbox")

			return nil
		},
	}
}
