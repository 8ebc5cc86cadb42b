package records

import (
	"fmt"
	"sort"
)

// Per-entity column aliases: persisted name -> domain name. Columns not
// listed keep their persisted name in both vocabularies.
var (
	gameAliases = map[string]string{
		"owner_user_id":   "owner",
		"aggregate_value": "combined_value",
		"draft_mode":      "exclusive_picks",
	}
	templateAliases = map[string]string{
		"owner_user_id": "owner",
	}
	participantAliases = map[string]string{
		"user_id": "user",
		"game_id": "game",
	}
	pickAliases = map[string]string{
		"participant_id": "participant",
		"stock_id":       "stock",
	}
)

// GameColumn resolves a domain-vocabulary game field to its persisted
// column name. Unknown names pass through unchanged.
func GameColumn(domain string) string {
	return reverseAlias(gameAliases, domain)
}

// TemplateColumn resolves a domain-vocabulary template field.
func TemplateColumn(domain string) string {
	return reverseAlias(templateAliases, domain)
}

func reverseAlias(aliases map[string]string, domain string) string {
	for col, dom := range aliases {
		if dom == domain {
			return col
		}
	}
	return domain
}

// rowReader walks one raw row, coercing SQLite storage classes onto record
// fields and remembering which columns it has consumed so extras and
// absences can be rejected at the boundary.
type rowReader struct {
	row  map[string]any
	seen map[string]bool
	err  error
}

func newRowReader(row map[string]any) *rowReader {
	return &rowReader{row: row, seen: make(map[string]bool, len(row))}
}

func (r *rowReader) take(name string) (any, bool) {
	v, ok := r.row[name]
	if !ok {
		if r.err == nil {
			r.err = fmt.Errorf("missing column %q", name)
		}
		return nil, false
	}
	r.seen[name] = true
	return v, true
}

func (r *rowReader) int64Col(name string) int64 {
	v, ok := r.take(name)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		if r.err == nil {
			r.err = fmt.Errorf("column %q: want integer, got %T", name, v)
		}
		return 0
	}
}

func (r *rowReader) optInt64(name string) *int64 {
	v, ok := r.take(name)
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case int64:
		return &n
	case float64:
		m := int64(n)
		return &m
	default:
		if r.err == nil {
			r.err = fmt.Errorf("column %q: want integer, got %T", name, v)
		}
		return nil
	}
}

func (r *rowReader) floatCol(name string) float64 {
	v, ok := r.take(name)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		if r.err == nil {
			r.err = fmt.Errorf("column %q: want real, got %T", name, v)
		}
		return 0
	}
}

func (r *rowReader) strCol(name string) string {
	v, ok := r.take(name)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		if r.err == nil {
			r.err = fmt.Errorf("column %q: want text, got %T", name, v)
		}
		return ""
	}
}

func (r *rowReader) optStr(name string) *string {
	v, ok := r.take(name)
	if !ok || v == nil {
		return nil
	}
	switch s := v.(type) {
	case string:
		return &s
	case []byte:
		out := string(s)
		return &out
	default:
		if r.err == nil {
			r.err = fmt.Errorf("column %q: want text, got %T", name, v)
		}
		return nil
	}
}

func (r *rowReader) boolCol(name string) bool {
	return r.int64Col(name) != 0
}

func (r *rowReader) finish(entity string) error {
	if r.err != nil {
		return fmt.Errorf("decode %s: %w", entity, r.err)
	}
	var extras []string
	for name := range r.row {
		if !r.seen[name] {
			extras = append(extras, name)
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		return fmt.Errorf("decode %s: unexpected columns %v", entity, extras)
	}
	return nil
}

func boolInt(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func UserFromRow(row map[string]any) (User, error) {
	r := newRowReader(row)
	u := User{
		ID:          r.int64Col("id"),
		DisplayName: r.strCol("display_name"),
		Source:      r.strCol("source"),
		Permissions: r.int64Col("permissions"),
		Wins:        r.int64Col("wins"),
		CreatedAt:   r.strCol("created_at"),
		UpdatedAt:   r.strCol("updated_at"),
	}
	return u, r.finish("user")
}

func UsersFromRows(rows []map[string]any) ([]User, error) {
	out := make([]User, 0, len(rows))
	for _, row := range rows {
		u, err := UserFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Row renders the user back into persisted columns, without the id.
func (u User) Row() map[string]any {
	return map[string]any{
		"display_name": u.DisplayName,
		"source":       u.Source,
		"permissions":  u.Permissions,
		"wins":         u.Wins,
		"created_at":   u.CreatedAt,
		"updated_at":   u.UpdatedAt,
	}
}

func TemplateFromRow(row map[string]any) (GameTemplate, error) {
	r := newRowReader(row)
	t := GameTemplate{
		ID:              r.int64Col("id"),
		Name:            r.strCol("name"),
		Owner:           r.int64Col("owner_user_id"),
		Cadence:         r.strCol("cadence"),
		PickCount:       r.int64Col("pick_count"),
		StartingMoney:   r.floatCol("starting_money"),
		LeadTimeDays:    r.int64Col("lead_time_days"),
		RepeatEveryDays: r.int64Col("repeat_every_days"),
		NextStartDate:   r.optStr("next_start_date"),
		CreatedAt:       r.strCol("created_at"),
		UpdatedAt:       r.strCol("updated_at"),
	}
	return t, r.finish("game template")
}

func TemplatesFromRows(rows []map[string]any) ([]GameTemplate, error) {
	out := make([]GameTemplate, 0, len(rows))
	for _, row := range rows {
		t, err := TemplateFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (t GameTemplate) Row() map[string]any {
	row := map[string]any{
		"name":              t.Name,
		"owner_user_id":     t.Owner,
		"cadence":           t.Cadence,
		"pick_count":        t.PickCount,
		"starting_money":    t.StartingMoney,
		"lead_time_days":    t.LeadTimeDays,
		"repeat_every_days": t.RepeatEveryDays,
		"created_at":        t.CreatedAt,
		"updated_at":        t.UpdatedAt,
	}
	if t.NextStartDate != nil {
		row["next_start_date"] = *t.NextStartDate
	}
	return row
}

func GameFromRow(row map[string]any) (Game, error) {
	r := newRowReader(row)
	g := Game{
		ID:             r.int64Col("id"),
		TemplateID:     r.optInt64("template_id"),
		Name:           r.strCol("name"),
		Owner:          r.int64Col("owner_user_id"),
		StartingMoney:  r.floatCol("starting_money"),
		PickCount:      r.int64Col("pick_count"),
		PickDate:       r.optStr("pick_date"),
		ExclusivePicks: r.boolCol("draft_mode"),
		Private:        r.boolCol("private"),
		AllowSelling:   r.boolCol("allow_selling"),
		UpdateCadence:  r.strCol("update_cadence"),
		StartDate:      r.strCol("start_date"),
		EndDate:        r.optStr("end_date"),
		Status:         r.strCol("status"),
		CombinedValue:  r.floatCol("aggregate_value"),
		ChangeValue:    r.floatCol("change_value"),
		ChangePercent:  r.floatCol("change_percent"),
		CreatedAt:      r.strCol("created_at"),
		UpdatedAt:      r.strCol("updated_at"),
	}
	return g, r.finish("game")
}

func GamesFromRows(rows []map[string]any) ([]Game, error) {
	out := make([]Game, 0, len(rows))
	for _, row := range rows {
		g, err := GameFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (g Game) Row() map[string]any {
	row := map[string]any{
		"name":            g.Name,
		"owner_user_id":   g.Owner,
		"starting_money":  g.StartingMoney,
		"pick_count":      g.PickCount,
		"draft_mode":      boolInt(g.ExclusivePicks),
		"private":         boolInt(g.Private),
		"allow_selling":   boolInt(g.AllowSelling),
		"update_cadence":  g.UpdateCadence,
		"start_date":      g.StartDate,
		"status":          g.Status,
		"aggregate_value": g.CombinedValue,
		"change_value":    g.ChangeValue,
		"change_percent":  g.ChangePercent,
		"created_at":      g.CreatedAt,
		"updated_at":      g.UpdatedAt,
	}
	if g.TemplateID != nil {
		row["template_id"] = *g.TemplateID
	}
	if g.PickDate != nil {
		row["pick_date"] = *g.PickDate
	}
	if g.EndDate != nil {
		row["end_date"] = *g.EndDate
	}
	return row
}

func StockFromRow(row map[string]any) (Stock, error) {
	r := newRowReader(row)
	s := Stock{
		ID:          r.int64Col("id"),
		Ticker:      r.strCol("ticker"),
		Exchange:    r.strCol("exchange"),
		CompanyName: r.strCol("company_name"),
		CreatedAt:   r.strCol("created_at"),
		UpdatedAt:   r.strCol("updated_at"),
	}
	return s, r.finish("stock")
}

func StocksFromRows(rows []map[string]any) ([]Stock, error) {
	out := make([]Stock, 0, len(rows))
	for _, row := range rows {
		s, err := StockFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (s Stock) Row() map[string]any {
	return map[string]any{
		"ticker":       s.Ticker,
		"exchange":     s.Exchange,
		"company_name": s.CompanyName,
		"created_at":   s.CreatedAt,
		"updated_at":   s.UpdatedAt,
	}
}

func PriceFromRow(row map[string]any) (StockPrice, error) {
	r := newRowReader(row)
	p := StockPrice{
		ID:        r.int64Col("id"),
		StockID:   r.int64Col("stock_id"),
		Price:     r.floatCol("price"),
		PriceTime: r.strCol("price_time"),
	}
	return p, r.finish("stock price")
}

func PricesFromRows(rows []map[string]any) ([]StockPrice, error) {
	out := make([]StockPrice, 0, len(rows))
	for _, row := range rows {
		p, err := PriceFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p StockPrice) Row() map[string]any {
	return map[string]any{
		"stock_id":   p.StockID,
		"price":      p.Price,
		"price_time": p.PriceTime,
	}
}

func ParticipantFromRow(row map[string]any) (Participant, error) {
	r := newRowReader(row)
	p := Participant{
		ID:            r.int64Col("id"),
		User:          r.int64Col("user_id"),
		Game:          r.int64Col("game_id"),
		TeamName:      r.optStr("team_name"),
		Status:        r.strCol("status"),
		JoinedAt:      r.strCol("joined_at"),
		CurrentValue:  r.floatCol("current_value"),
		ChangeValue:   r.floatCol("change_value"),
		ChangePercent: r.floatCol("change_percent"),
	}
	return p, r.finish("participant")
}

func ParticipantsFromRows(rows []map[string]any) ([]Participant, error) {
	out := make([]Participant, 0, len(rows))
	for _, row := range rows {
		p, err := ParticipantFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p Participant) Row() map[string]any {
	row := map[string]any{
		"user_id":        p.User,
		"game_id":        p.Game,
		"status":         p.Status,
		"joined_at":      p.JoinedAt,
		"current_value":  p.CurrentValue,
		"change_value":   p.ChangeValue,
		"change_percent": p.ChangePercent,
	}
	if p.TeamName != nil {
		row["team_name"] = *p.TeamName
	}
	return row
}

func PickFromRow(row map[string]any) (Pick, error) {
	r := newRowReader(row)
	p := Pick{
		ID:            r.int64Col("id"),
		Participant:   r.int64Col("participant_id"),
		Stock:         r.int64Col("stock_id"),
		Shares:        r.floatCol("shares"),
		StartValue:    r.floatCol("start_value"),
		CurrentValue:  r.floatCol("current_value"),
		ChangeValue:   r.floatCol("change_value"),
		ChangePercent: r.floatCol("change_percent"),
		Status:        r.strCol("status"),
		CreatedAt:     r.strCol("created_at"),
		UpdatedAt:     r.strCol("updated_at"),
	}
	return p, r.finish("stock pick")
}

func PicksFromRows(rows []map[string]any) ([]Pick, error) {
	out := make([]Pick, 0, len(rows))
	for _, row := range rows {
		p, err := PickFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p Pick) Row() map[string]any {
	return map[string]any{
		"participant_id": p.Participant,
		"stock_id":       p.Stock,
		"shares":         p.Shares,
		"start_value":    p.StartValue,
		"current_value":  p.CurrentValue,
		"change_value":   p.ChangeValue,
		"change_percent": p.ChangePercent,
		"status":         p.Status,
		"created_at":     p.CreatedAt,
		"updated_at":     p.UpdatedAt,
	}
}
