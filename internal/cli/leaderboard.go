package cli

import (
	"courseconnect_backend/internal/config"
	"courseconnect_backend/internal/repository"
	"courseconnect_backend/internal/service"
	"courseconnect_backend/pkg/database"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewLeaderboardCmd prints a class (or the global) leaderboard as a table.
func NewLeaderboardCmd(configDir *string) *cobra.Command {
	var (
		classID string
		global  bool
		limit   int
		format  string
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print a class leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if classID == "" && !global {
				return errors.New("either --class or --global is required")
			}
			if format != "table" && format != "yaml" {
				return fmt.Errorf("unknown format %q", format)
			}
			cfg, err := config.LoadConfig(*configDir)
			if err != nil {
				return err
			}
			db, err := database.Open(&cfg.Database, cfg.Server.Mode)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			members := repository.NewMembershipRepository(db)
			users := repository.NewUserRepository(db)
			scoring := service.NewScoringService(nil, members, users, nil, nil, nil, cfg.Scoring)

			ctx := contextOrBackground(cmd)
			var entries []service.LeaderboardEntry
			if global {
				entries, err = scoring.GlobalLeaderboard(ctx, limit)
			} else {
				entries, err = scoring.ComputeLeaderboard(ctx, classID)
				if err == nil && limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
			}
			if err != nil {
				return err
			}
			return printLeaderboard(cmd.OutOrStdout(), entries, format)
		},
	}
	cmd.Flags().StringVar(&classID, "class", "", "class id")
	cmd.Flags().BoolVar(&global, "global", false, "rank by global points instead of a class")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows, 0 for all")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or yaml")
	return cmd
}

func printLeaderboard(out io.Writer, entries []service.LeaderboardEntry, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tNAME\tPOINTS\tROLE\tUID")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d\n", e.Rank, e.DisplayName, e.Points, e.Role, e.UserID)
	}
	return w.Flush()
}
