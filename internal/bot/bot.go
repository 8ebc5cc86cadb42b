// Package bot is a thin Discord chat surface over the engine and rules
// layers. Each command resolves the author to a user record keyed by
// their Discord username, so no separate signup step exists.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/engine"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/records"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/rules"
)

const userSource = "discord"

type Bot struct {
	log     *slog.Logger
	engine  *engine.Engine
	rules   *rules.Rules
	prefix  string
	session *discordgo.Session
}

func New(token, prefix string, logger *slog.Logger, eng *engine.Engine, ruleSet *rules.Rules) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	b := &Bot{
		log:     logger,
		engine:  eng,
		rules:   ruleSet,
		prefix:  prefix,
		session: session,
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	session.AddHandler(b.onMessage)
	return b, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	b.log.Info("discord bot connected", "prefix", b.prefix)
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, b.prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(content, b.prefix))
	if len(fields) == 0 {
		return
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reply, err := b.dispatch(ctx, m.Author.Username, cmd, args)
	if err != nil {
		reply = friendlyError(err)
	}
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		b.log.Error("discord send failed", "channel", m.ChannelID, "err", err)
	}
}

func (b *Bot) dispatch(ctx context.Context, author, cmd string, args []string) (string, error) {
	switch cmd {
	case "help":
		return b.helpText(), nil
	case "games":
		return b.cmdGames(ctx)
	case "game":
		return b.cmdGame(ctx, args)
	case "join":
		return b.cmdJoin(ctx, author, args)
	case "buy":
		return b.cmdBuy(ctx, author, args)
	case "picks":
		return b.cmdPicks(ctx, author, args)
	case "drop":
		return b.cmdDrop(ctx, author, args)
	case "approve":
		return b.cmdApprove(ctx, author, args)
	case "standings":
		return b.cmdStandings(ctx, args)
	case "stock":
		return b.cmdStock(ctx, args)
	case "update":
		return b.cmdUpdate(ctx, author, args)
	default:
		return fmt.Sprintf("Unknown command %q. Try %shelp.", cmd, b.prefix), nil
	}
}

func (b *Bot) helpText() string {
	p := b.prefix
	return strings.Join([]string{
		"**Stock game commands**",
		p + "games - list joinable games",
		p + "game <id> - show a game",
		p + "join <game id> [team name] - join a game",
		p + "buy <game id> <ticker> - pick a stock",
		p + "picks <game id> - show your picks",
		p + "drop <pick id> - remove a pending pick",
		p + "approve <participant id> - approve a pending member (owner only)",
		p + "standings <game id> - current leaderboard",
		p + "stock <ticker> - stock info and latest price",
		p + "update <game id> - force a revaluation (owner only)",
	}, "\n")
}

func (b *Bot) author(ctx context.Context, name string) (records.User, error) {
	return b.engine.EnsureUser(ctx, name, userSource)
}

func (b *Bot) cmdGames(ctx context.Context) (string, error) {
	games, err := b.engine.ListGames(ctx, records.GameOpen)
	if err != nil {
		return "", err
	}
	if len(games) == 0 {
		return "No open games right now.", nil
	}
	var sb strings.Builder
	sb.WriteString("**Open games**\n")
	for _, g := range games {
		fmt.Fprintf(&sb, "#%d %s - %d picks, $%.2f to invest, starts %s\n",
			g.ID, g.Name, g.PickCount, g.StartingMoney, g.StartDate)
	}
	return sb.String(), nil
}

func (b *Bot) cmdGame(ctx context.Context, args []string) (string, error) {
	id, err := argID(args, 0, "game id")
	if err != nil {
		return err.Error(), nil
	}
	g, err := b.engine.GetGame(ctx, id)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** (#%d)\n", g.Name, g.ID)
	fmt.Fprintf(&sb, "Status: %s | Cadence: %s\n", g.Status, g.UpdateCadence)
	end := "open-ended"
	if g.EndDate != nil {
		end = *g.EndDate
	}
	fmt.Fprintf(&sb, "Runs %s to %s\n", g.StartDate, end)
	fmt.Fprintf(&sb, "%d picks each, $%.2f starting money\n", g.PickCount, g.StartingMoney)
	if g.CombinedValue > 0 {
		fmt.Fprintf(&sb, "Combined value: $%.2f (%+.2f%%)\n", g.CombinedValue, g.ChangePercent)
	}
	return sb.String(), nil
}

func (b *Bot) cmdJoin(ctx context.Context, author string, args []string) (string, error) {
	id, err := argID(args, 0, "game id")
	if err != nil {
		return err.Error(), nil
	}
	u, err := b.author(ctx, author)
	if err != nil {
		return "", err
	}
	team := strings.Join(args[1:], " ")
	p, err := b.rules.Join(ctx, u.ID, id, team)
	if err != nil {
		return "", err
	}
	if p.Status == records.ParticipantPending {
		return "Join request sent. The game owner needs to approve you.", nil
	}
	return fmt.Sprintf("You're in! Participant #%d.", p.ID), nil
}

func (b *Bot) cmdBuy(ctx context.Context, author string, args []string) (string, error) {
	id, err := argID(args, 0, "game id")
	if err != nil {
		return err.Error(), nil
	}
	if len(args) < 2 {
		return "Usage: buy <game id> <ticker>", nil
	}
	u, err := b.author(ctx, author)
	if err != nil {
		return "", err
	}
	pick, err := b.rules.Buy(ctx, u.ID, id, args[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Picked %s (pick #%d). Shares are assigned at the next settlement.",
		strings.ToUpper(args[1]), pick.ID), nil
}

func (b *Bot) cmdPicks(ctx context.Context, author string, args []string) (string, error) {
	id, err := argID(args, 0, "game id")
	if err != nil {
		return err.Error(), nil
	}
	u, err := b.author(ctx, author)
	if err != nil {
		return "", err
	}
	p, err := b.engine.FindParticipant(ctx, u.ID, id)
	if err != nil {
		return "", err
	}
	picks, err := b.engine.ListPicks(ctx, p.ID, "")
	if err != nil {
		return "", err
	}
	if len(picks) == 0 {
		return "You haven't picked anything yet.", nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Your picks** ($%.2f, %+.2f%%)\n", p.CurrentValue, p.ChangePercent)
	for _, pk := range picks {
		stock, err := b.engine.GetStock(ctx, pk.Stock)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "#%d %s [%s] %.4f shares, $%.2f (%+.2f%%)\n",
			pk.ID, stock.Ticker, pk.Status, pk.Shares, pk.CurrentValue, pk.ChangePercent)
	}
	return sb.String(), nil
}

func (b *Bot) cmdDrop(ctx context.Context, author string, args []string) (string, error) {
	id, err := argID(args, 0, "pick id")
	if err != nil {
		return err.Error(), nil
	}
	u, err := b.author(ctx, author)
	if err != nil {
		return "", err
	}
	if err := b.rules.RemovePick(ctx, u.ID, id); err != nil {
		return "", err
	}
	return "Pick removed.", nil
}

func (b *Bot) cmdApprove(ctx context.Context, author string, args []string) (string, error) {
	id, err := argID(args, 0, "participant id")
	if err != nil {
		return err.Error(), nil
	}
	u, err := b.author(ctx, author)
	if err != nil {
		return "", err
	}
	p, err := b.rules.Approve(ctx, u.ID, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Participant #%d approved.", p.ID), nil
}

func (b *Bot) cmdStandings(ctx context.Context, args []string) (string, error) {
	id, err := argID(args, 0, "game id")
	if err != nil {
		return err.Error(), nil
	}
	standings, err := b.engine.Standings(ctx, id)
	if err != nil {
		return "", err
	}
	if len(standings) == 0 {
		return "No active participants yet.", nil
	}
	var sb strings.Builder
	sb.WriteString("**Standings**\n")
	for i, p := range standings {
		u, err := b.engine.GetUser(ctx, p.User)
		if err != nil {
			return "", err
		}
		name := u.DisplayName
		if p.TeamName != nil && *p.TeamName != "" {
			name = *p.TeamName
		}
		fmt.Fprintf(&sb, "%d. %s - $%.2f (%+.2f%%)\n", i+1, name, p.CurrentValue, p.ChangePercent)
	}
	return sb.String(), nil
}

func (b *Bot) cmdStock(ctx context.Context, args []string) (string, error) {
	if len(args) < 1 {
		return "Usage: stock <ticker>", nil
	}
	stock, err := b.engine.FindStock(ctx, args[0])
	if err != nil {
		return "", err
	}
	reply := fmt.Sprintf("**%s** (%s, %s)", stock.Ticker, stock.CompanyName, stock.Exchange)
	if latest, err := b.engine.LatestPrice(ctx, stock.ID); err == nil {
		reply += fmt.Sprintf("\nLast price: $%.2f at %s", latest.Price, latest.PriceTime)
	}
	return reply, nil
}

func (b *Bot) cmdUpdate(ctx context.Context, author string, args []string) (string, error) {
	id, err := argID(args, 0, "game id")
	if err != nil {
		return err.Error(), nil
	}
	u, err := b.author(ctx, author)
	if err != nil {
		return "", err
	}
	if err := b.rules.ForceUpdate(ctx, u.ID, id); err != nil {
		return "", err
	}
	return "Revaluation complete.", nil
}

func argID(args []string, idx int, what string) (int64, error) {
	if len(args) <= idx {
		return 0, fmt.Errorf("missing %s", what)
	}
	id, err := strconv.ParseInt(args[idx], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a valid %s", args[idx], what)
	}
	return id, nil
}

// friendlyError turns taxonomy errors into chat replies and hides
// anything unexpected.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return "Couldn't find that."
	case errors.Is(err, engine.ErrValidation),
		errors.Is(err, engine.ErrNotAllowed),
		errors.Is(err, engine.ErrConstraint),
		errors.Is(err, engine.ErrPermissionDenied):
		return capitalize(stripSentinel(err.Error()))
	case errors.Is(err, engine.ErrProvider):
		return "The price feed is unavailable right now, try again later."
	default:
		return "Something went wrong, try again later."
	}
}

// stripSentinel drops the "<sentinel>: " prefix so the user sees only
// the detail portion.
func stripSentinel(msg string) string {
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
