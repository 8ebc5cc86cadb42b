// Package records translates between persisted column names and the domain
// vocabulary used by the engine and its callers. It is pure and
// table-driven: raw rows in, typed records out, and column maps back for
// writes.
package records

import "errors"

var (
	ErrNotFound  = errors.New("record not found")
	ErrAmbiguous = errors.New("ambiguous result: multiple records where one expected")
)

// Game statuses, forward-only.
const (
	GameOpen   = "open"
	GameActive = "active"
	GameEnded  = "ended"
)

// Participant statuses.
const (
	ParticipantPending  = "pending"
	ParticipantActive   = "active"
	ParticipantInactive = "inactive"
)

// Pick statuses. PendingSell and Sold are valid state-machine targets even
// though selling has no settlement semantics yet.
const (
	PickPendingBuy  = "pending_buy"
	PickOwned       = "owned"
	PickPendingSell = "pending_sell"
	PickSold        = "sold"
)

// Update cadences.
const (
	CadenceDaily    = "daily"
	CadenceHourly   = "hourly"
	CadenceMinute   = "minute"
	CadenceRealtime = "realtime"
)

type User struct {
	ID          int64
	DisplayName string
	Source      string
	Permissions int64
	Wins        int64
	CreatedAt   string
	UpdatedAt   string
}

type GameTemplate struct {
	ID              int64
	Name            string
	Owner           int64
	Cadence         string
	PickCount       int64
	StartingMoney   float64
	LeadTimeDays    int64
	RepeatEveryDays int64
	NextStartDate   *string
	CreatedAt       string
	UpdatedAt       string
}

type Game struct {
	ID             int64
	TemplateID     *int64
	Name           string
	Owner          int64
	StartingMoney  float64
	PickCount      int64
	PickDate       *string
	ExclusivePicks bool
	Private        bool
	AllowSelling   bool
	UpdateCadence  string
	StartDate      string
	EndDate        *string
	Status         string
	CombinedValue  float64
	ChangeValue    float64
	ChangePercent  float64
	CreatedAt      string
	UpdatedAt      string
}

type Stock struct {
	ID          int64
	Ticker      string
	Exchange    string
	CompanyName string
	CreatedAt   string
	UpdatedAt   string
}

type StockPrice struct {
	ID        int64
	StockID   int64
	Price     float64
	PriceTime string
}

type Participant struct {
	ID            int64
	User          int64
	Game          int64
	TeamName      *string
	Status        string
	JoinedAt      string
	CurrentValue  float64
	ChangeValue   float64
	ChangePercent float64
}

type Pick struct {
	ID            int64
	Participant   int64
	Stock         int64
	Shares        float64
	StartValue    float64
	CurrentValue  float64
	ChangeValue   float64
	ChangePercent float64
	Status        string
	CreatedAt     string
	UpdatedAt     string
}

// One reduces a decoded slice to the single record a caller expected.
func One[T any](items []T) (T, error) {
	var zero T
	switch len(items) {
	case 0:
		return zero, ErrNotFound
	case 1:
		return items[0], nil
	default:
		return zero, ErrAmbiguous
	}
}
