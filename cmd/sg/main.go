package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cl "github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/cli"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/config"
)

func main() {
	cfg, err := config.LoadCLI()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "sg",
		Short:        "Stock picking game client",
		SilenceUsage: true,
	}
	root.PersistentFlags().Int64("user", 0, "acting user id")

	root.AddCommand(
		newUsersCmd(&apiBase),
		newGamesCmd(&apiBase),
		newPicksCmd(&apiBase),
		newParticipantsCmd(&apiBase),
		newStocksCmd(&apiBase),
		newTemplatesCmd(&apiBase),
		newUpdateAllCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func actingUser(cmd *cobra.Command) (int64, error) {
	id, err := cmd.Flags().GetInt64("user")
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("--user is required")
	}
	return id, nil
}

func argInt64(args []string, idx int, what string) (int64, error) {
	if len(args) <= idx {
		return 0, fmt.Errorf("missing %s argument", what)
	}
	v, err := strconv.ParseInt(args[idx], 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%q is not a valid %s", args[idx], what)
	}
	return v, nil
}

func newUsersCmd(apiBase *string) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage players",
	}
	users.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all players",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).ListUsers(ctx)
			if err != nil {
				return err
			}
			return renderUsers(raw)
		},
	})
	users.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create or look up a player by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := promptRequired("Display name")
			if err != nil {
				return err
			}
			source, err := promptChoice("Source", []string{"cli", "discord", "web"}, "cli")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).EnsureUser(ctx, name, source)
			if err != nil {
				return err
			}
			return renderUser(raw)
		},
	})
	return users
}

func newGamesCmd(apiBase *string) *cobra.Command {
	games := &cobra.Command{
		Use:   "games",
		Short: "Create, inspect and play games",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List games",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).ListGames(ctx, status)
			if err != nil {
				return err
			}
			return renderGames(raw)
		},
	}
	listCmd.Flags().String("status", "", "filter by status (open/active/ended)")
	games.AddCommand(listCmd)

	games.AddCommand(&cobra.Command{
		Use:   "show <game id>",
		Short: "Show one game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := argInt64(args, 0, "game id")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).GetGame(ctx, id)
			if err != nil {
				return err
			}
			return renderGame(raw)
		},
	})

	games.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create a game interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := actingUser(cmd)
			if err != nil {
				return err
			}
			name, err := promptRequired("Game name")
			if err != nil {
				return err
			}
			money, err := promptFloat("Starting money", 0)
			if err != nil {
				return err
			}
			picks, err := promptInt64("Picks per player", 1)
			if err != nil {
				return err
			}
			start, err := promptRequired("Start date (YYYY-MM-DD)")
			if err != nil {
				return err
			}
			end, err := promptOptional("End date (YYYY-MM-DD, blank for open-ended)")
			if err != nil {
				return err
			}
			cadence, err := promptChoice("Update cadence", []string{"daily", "hourly", "minute", "realtime"}, "daily")
			if err != nil {
				return err
			}
			private, err := promptChoice("Private game", []string{"yes", "no"}, "no")
			if err != nil {
				return err
			}

			body := map[string]any{
				"name":           name,
				"owner":          owner,
				"starting_money": money,
				"pick_count":     picks,
				"start_date":     start,
				"update_cadence": cadence,
				"private":        private == "yes",
			}
			if end != "" {
				body["end_date"] = end
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).CreateGame(ctx, body)
			if err != nil {
				return err
			}
			printSuccess("Game created.")
			return renderGame(raw)
		},
	})

	games.AddCommand(&cobra.Command{
		Use:   "standings <game id>",
		Short: "Show the leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := argInt64(args, 0, "game id")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).Standings(ctx, id)
			if err != nil {
				return err
			}
			return renderStandings(raw)
		},
	})

	joinCmd := &cobra.Command{
		Use:   "join <game id>",
		Short: "Join a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := actingUser(cmd)
			if err != nil {
				return err
			}
			id, err := argInt64(args, 0, "game id")
			if err != nil {
				return err
			}
			team, _ := cmd.Flags().GetString("team")
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).Join(ctx, userID, id, team)
			if err != nil {
				return err
			}
			return renderJoined(raw)
		},
	}
	joinCmd.Flags().String("team", "", "optional team name")
	games.AddCommand(joinCmd)

	games.AddCommand(&cobra.Command{
		Use:   "buy <game id> <ticker>",
		Short: "Pick a stock in a game",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := actingUser(cmd)
			if err != nil {
				return err
			}
			id, err := argInt64(args, 0, "game id")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).Buy(ctx, userID, id, args[1])
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Picked %s. Shares are assigned at the next settlement.", strings.ToUpper(args[1])))
			return renderPick(raw)
		},
	})

	games.AddCommand(&cobra.Command{
		Use:   "update <game id>",
		Short: "Force a revaluation (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := actingUser(cmd)
			if err != nil {
				return err
			}
			id, err := argInt64(args, 0, "game id")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).ForceUpdate(ctx, userID, id)
			if err != nil {
				return err
			}
			return renderSimpleOK(raw, "Revaluation complete.")
		},
	})

	games.AddCommand(&cobra.Command{
		Use:   "set <game id> <field=value>...",
		Short: "Change game settings (owner only)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := actingUser(cmd)
			if err != nil {
				return err
			}
			id, err := argInt64(args, 0, "game id")
			if err != nil {
				return err
			}
			changes, err := parseChanges(args[1:])
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).ManageGame(ctx, userID, id, changes)
			if err != nil {
				return err
			}
			printSuccess("Game updated.")
			return renderGame(raw)
		},
	})

	return games
}

func newPicksCmd(apiBase *string) *cobra.Command {
	picks := &cobra.Command{
		Use:   "picks",
		Short: "Inspect and manage picks",
	}
	listCmd := &cobra.Command{
		Use:   "list <participant id>",
		Short: "List a participant's picks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := argInt64(args, 0, "participant id")
			if err != nil {
				return err
			}
			status, _ := cmd.Flags().GetString("status")
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).ListPicks(ctx, id, status)
			if err != nil {
				return err
			}
			return renderPicks(raw)
		},
	}
	listCmd.Flags().String("status", "", "filter by pick status")
	picks.AddCommand(listCmd)

	picks.AddCommand(&cobra.Command{
		Use:   "drop <pick id>",
		Short: "Remove a pending pick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := actingUser(cmd)
			if err != nil {
				return err
			}
			id, err := argInt64(args, 0, "pick id")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).RemovePick(ctx, userID, id)
			if err != nil {
				return err
			}
			return renderSimpleOK(raw, "Pick removed.")
		},
	})
	return picks
}

func newParticipantsCmd(apiBase *string) *cobra.Command {
	participants := &cobra.Command{
		Use:   "participants",
		Short: "Manage game membership",
	}
	participants.AddCommand(&cobra.Command{
		Use:   "approve <participant id>",
		Short: "Approve a pending member (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := actingUser(cmd)
			if err != nil {
				return err
			}
			id, err := argInt64(args, 0, "participant id")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if _, err := newClient(apiBase).Approve(ctx, userID, id); err != nil {
				return err
			}
			printSuccess("Participant approved.")
			return nil
		},
	})
	return participants
}

func newStocksCmd(apiBase *string) *cobra.Command {
	stocks := &cobra.Command{
		Use:   "stocks",
		Short: "Browse tracked stocks",
	}
	stocks.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tracked stocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).ListStocks(ctx)
			if err != nil {
				return err
			}
			return renderStocksList(raw)
		},
	})
	stocks.AddCommand(&cobra.Command{
		Use:   "show <ticker>",
		Short: "Show a stock and its latest price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).StockDetail(ctx, args[0])
			if err != nil {
				return err
			}
			return renderStockDetail(raw)
		},
	})
	stocks.AddCommand(&cobra.Command{
		Use:   "add <ticker>",
		Short: "Track a new ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).DiscoverStock(ctx, args[0])
			if err != nil {
				return err
			}
			printSuccess("Stock tracked.")
			return renderStock(raw)
		},
	})
	return stocks
}

func newTemplatesCmd(apiBase *string) *cobra.Command {
	templates := &cobra.Command{
		Use:   "templates",
		Short: "Recurring game templates",
	}
	templates.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).ListTemplates(ctx)
			if err != nil {
				return err
			}
			return renderTemplates(raw)
		},
	})
	templates.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create a template interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := actingUser(cmd)
			if err != nil {
				return err
			}
			name, err := promptRequired("Template name")
			if err != nil {
				return err
			}
			money, err := promptFloat("Starting money", 0)
			if err != nil {
				return err
			}
			picks, err := promptInt64("Picks per player", 1)
			if err != nil {
				return err
			}
			next, err := promptRequired("Next start date (YYYY-MM-DD)")
			if err != nil {
				return err
			}
			repeat, err := promptInt64("Repeat every N days", 1)
			if err != nil {
				return err
			}
			lead, err := promptInt64("Open for joining N days before start", 0)
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			raw, err := newClient(apiBase).CreateTemplate(ctx, map[string]any{
				"Name":            name,
				"Owner":           owner,
				"StartingMoney":   money,
				"PickCount":       picks,
				"NextStartDate":   next,
				"RepeatEveryDays": repeat,
				"LeadTimeDays":    lead,
			})
			if err != nil {
				return err
			}
			printSuccess("Template created.")
			_ = raw
			return nil
		},
	})
	return templates
}

func newUpdateAllCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "update-all",
		Short: "Run a full revaluation pass over every game",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			raw, err := newClient(apiBase).UpdateAll(ctx)
			if err != nil {
				return err
			}
			return renderSimpleOK(raw, "Revaluation pass complete.")
		},
	}
}

// parseChanges turns field=value arguments into a change set, keeping
// numeric and boolean values typed.
func parseChanges(args []string) (map[string]any, error) {
	changes := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		switch {
		case value == "true" || value == "false":
			changes[key] = value == "true"
		default:
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				changes[key] = n
			} else {
				changes[key] = value
			}
		}
	}
	return changes, nil
}
