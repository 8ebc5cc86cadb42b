package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/records"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type usersPayload struct {
	Users []records.User `json:"users"`
}

type gamesPayload struct {
	Games []records.Game `json:"games"`
}

type standingsPayload struct {
	Standings []records.Participant `json:"standings"`
}

type picksPayload struct {
	Picks []records.Pick `json:"picks"`
}

type stocksPayload struct {
	Stocks []records.Stock `json:"stocks"`
}

type stockDetailPayload struct {
	Stock       records.Stock       `json:"stock"`
	LatestPrice *records.StockPrice `json:"latest_price"`
}

type templatesPayload struct {
	Templates []records.GameTemplate `json:"templates"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptFloat(label string, min float64) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			printWarn("Enter a valid number.")
			continue
		}
		if v <= min {
			printWarn(fmt.Sprintf("Value must be > %.2f", min))
			continue
		}
		return v, nil
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func renderUsers(raw map[string]any) error {
	payload, err := decodeInto[usersPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PLAYERS ==")
	if len(payload.Users) == 0 {
		printInfo("No players yet.")
		return nil
	}
	fmt.Printf("%-6s %-24s %-10s %6s\n", "ID", "NAME", "SOURCE", "WINS")
	for _, u := range payload.Users {
		fmt.Printf("%-6d %-24s %-10s %6d\n", u.ID, truncate(u.DisplayName, 24), u.Source, u.Wins)
	}
	fmt.Println()
	return nil
}

func renderUser(raw map[string]any) error {
	u, err := decodeInto[records.User](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", u.DisplayName)
	fmt.Printf("ID:     %d\n", u.ID)
	fmt.Printf("Source: %s\n", u.Source)
	fmt.Printf("Wins:   %d\n", u.Wins)
	fmt.Println()
	return nil
}

func renderGames(raw map[string]any) error {
	payload, err := decodeInto[gamesPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== GAMES ==")
	if len(payload.Games) == 0 {
		printInfo("No games found.")
		return nil
	}
	fmt.Printf("%-6s %-24s %-8s %-10s %-12s %12s %9s\n", "ID", "NAME", "STATUS", "CADENCE", "START", "VALUE", "CHANGE%")
	for _, g := range payload.Games {
		fmt.Printf("%-6d %-24s %-8s %-10s %-12s %12.2f %9s\n",
			g.ID,
			truncate(g.Name, 24),
			g.Status,
			g.UpdateCadence,
			g.StartDate,
			g.CombinedValue,
			colorizePercent(g.ChangePercent),
		)
	}
	fmt.Println()
	return nil
}

func renderGame(raw map[string]any) error {
	g, err := decodeInto[records.Game](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s (#%d) ==\n", g.Name, g.ID)
	fmt.Printf("Status:          %s\n", g.Status)
	fmt.Printf("Cadence:         %s\n", g.UpdateCadence)
	end := "open-ended"
	if g.EndDate != nil {
		end = *g.EndDate
	}
	fmt.Printf("Runs:            %s to %s\n", g.StartDate, end)
	if g.PickDate != nil {
		fmt.Printf("Pick deadline:   %s\n", *g.PickDate)
	}
	fmt.Printf("Starting money:  %.2f\n", g.StartingMoney)
	fmt.Printf("Picks each:      %d\n", g.PickCount)
	fmt.Printf("Private:         %t\n", g.Private)
	fmt.Printf("Exclusive picks: %t\n", g.ExclusivePicks)
	if g.CombinedValue > 0 {
		fmt.Printf("Combined value:  %.2f (%s)\n", g.CombinedValue, colorizePercent(g.ChangePercent))
	}
	fmt.Println()
	return nil
}

func renderStandings(raw map[string]any) error {
	payload, err := decodeInto[standingsPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== STANDINGS ==")
	if len(payload.Standings) == 0 {
		printInfo("No active participants yet.")
		return nil
	}
	fmt.Printf("%-4s %-6s %-20s %12s %12s %9s\n", "#", "ID", "TEAM", "VALUE", "CHANGE", "CHANGE%")
	for i, p := range payload.Standings {
		team := fmt.Sprintf("user %d", p.User)
		if p.TeamName != nil && *p.TeamName != "" {
			team = *p.TeamName
		}
		fmt.Printf("%-4d %-6d %-20s %12.2f %12s %9s\n",
			i+1,
			p.ID,
			truncate(team, 20),
			p.CurrentValue,
			colorizeValue(p.ChangeValue),
			colorizePercent(p.ChangePercent),
		)
	}
	fmt.Println()
	return nil
}

func renderJoined(raw map[string]any) error {
	p, err := decodeInto[records.Participant](raw)
	if err != nil {
		return err
	}
	if p.Status == records.ParticipantPending {
		printWarn("Join request sent. The game owner needs to approve you.")
		return nil
	}
	printSuccess(fmt.Sprintf("Joined. Participant #%d.", p.ID))
	return nil
}

func renderPick(raw map[string]any) error {
	pick, err := decodeInto[records.Pick](raw)
	if err != nil {
		return err
	}
	fmt.Printf("Pick #%d [%s]\n", pick.ID, pick.Status)
	return nil
}

func renderPicks(raw map[string]any) error {
	payload, err := decodeInto[picksPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PICKS ==")
	if len(payload.Picks) == 0 {
		printInfo("No picks yet.")
		return nil
	}
	fmt.Printf("%-6s %-8s %-13s %12s %12s %12s %9s\n", "ID", "STOCK", "STATUS", "SHARES", "START", "NOW", "CHANGE%")
	for _, p := range payload.Picks {
		fmt.Printf("%-6d %-8d %-13s %12.4f %12.2f %12.2f %9s\n",
			p.ID,
			p.Stock,
			p.Status,
			p.Shares,
			p.StartValue,
			p.CurrentValue,
			colorizePercent(p.ChangePercent),
		)
	}
	fmt.Println()
	return nil
}

func renderStocksList(raw map[string]any) error {
	payload, err := decodeInto[stocksPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== STOCKS ==")
	if len(payload.Stocks) == 0 {
		printInfo("No stocks tracked yet.")
		return nil
	}
	fmt.Printf("%-6s %-8s %-10s %-28s\n", "ID", "TICKER", "EXCHANGE", "NAME")
	for _, s := range payload.Stocks {
		fmt.Printf("%-6d %-8s %-10s %-28s\n", s.ID, s.Ticker, s.Exchange, truncate(s.CompanyName, 28))
	}
	fmt.Println()
	return nil
}

func renderStockDetail(raw map[string]any) error {
	payload, err := decodeInto[stockDetailPayload](raw)
	if err != nil {
		return err
	}
	s := payload.Stock
	accent.Printf("\n== %s (%s) ==\n", s.Ticker, s.CompanyName)
	fmt.Printf("Exchange: %s\n", s.Exchange)
	if payload.LatestPrice != nil {
		fmt.Printf("Last price: %.2f at %s\n", payload.LatestPrice.Price, payload.LatestPrice.PriceTime)
	} else {
		printInfo("No price recorded yet.")
	}
	fmt.Println()
	return nil
}

func renderStock(raw map[string]any) error {
	s, err := decodeInto[records.Stock](raw)
	if err != nil {
		return err
	}
	fmt.Printf("#%d %s (%s, %s)\n", s.ID, s.Ticker, s.CompanyName, s.Exchange)
	return nil
}

func renderTemplates(raw map[string]any) error {
	payload, err := decodeInto[templatesPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== TEMPLATES ==")
	if len(payload.Templates) == 0 {
		printInfo("No templates yet.")
		return nil
	}
	fmt.Printf("%-6s %-24s %-12s %8s %8s %-12s\n", "ID", "NAME", "CADENCE", "PICKS", "REPEAT", "NEXT START")
	for _, t := range payload.Templates {
		next := "-"
		if t.NextStartDate != nil {
			next = *t.NextStartDate
		}
		fmt.Printf("%-6d %-24s %-12s %8d %8d %-12s\n",
			t.ID, truncate(t.Name, 24), t.Cadence, t.PickCount, t.RepeatEveryDays, next)
	}
	fmt.Println()
	return nil
}

func renderSimpleOK(raw map[string]any, successMessage string) error {
	ok := false
	if v, has := raw["ok"]; has {
		if b, isBool := v.(bool); isBool {
			ok = b
		}
	}
	if ok || successMessage != "" {
		printSuccess(successMessage)
		return nil
	}
	printInfo("Done.")
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func colorizeValue(v float64) string {
	text := fmt.Sprintf("%+.2f", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
