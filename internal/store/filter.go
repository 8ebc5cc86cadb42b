package store

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// Caller-misuse errors. These are returned as Go errors, never folded into
// the result envelope, because they are programming mistakes rather than
// data conditions.
var (
	ErrBadOrderDirection = fmt.Errorf("order direction must be ASC or DESC")
	ErrBadOperator       = fmt.Errorf("unsupported filter operator")
	ErrBadFilterValue    = fmt.Errorf("malformed filter value")
	ErrNoFilter          = fmt.Errorf("operation requires at least one filter")
	ErrNoColumns         = fmt.Errorf("operation requires at least one column")
	ErrBadIdentifier     = fmt.Errorf("invalid table or column identifier")
)

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// CheckIdentifier allow-lists a table or column name. Identifiers are
// caller-trusted; this check is for the case where one is ever sourced from
// configuration rather than code.
func CheckIdentifier(name string) error {
	if !identRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrBadIdentifier, name)
	}
	return nil
}

var operators = map[string]string{
	"=":      "=",
	"!=":     "!=",
	"<":      "<",
	"<=":     "<=",
	">":      ">",
	">=":     ">=",
	"LIKE":   "LIKE",
	"IN":     "IN",
	"NOT IN": "NOT IN",
}

// Cond is a single operator condition against one column.
type Cond struct {
	Col string
	Op  string
	Val any
}

// Filters composes a WHERE clause. Eq entries with nil values are dropped
// ("no constraint"); Conds express LIKE/IN/comparison operators; Raw is a
// pre-built clause with bound args for advanced cases. All values travel as
// bound parameters.
type Filters struct {
	Eq      map[string]any
	Conds   []Cond
	Raw     string
	RawArgs []any
}

func (f Filters) empty() bool {
	for _, v := range f.Eq {
		if v != nil {
			return false
		}
	}
	return len(f.Conds) == 0 && strings.TrimSpace(f.Raw) == ""
}

// build renders the WHERE body (without the WHERE keyword) and its args.
// Equality columns are sorted so generated SQL is deterministic.
func (f Filters) build() (string, []any, error) {
	var parts []string
	var args []any

	cols := make([]string, 0, len(f.Eq))
	for col, v := range f.Eq {
		if v == nil {
			continue
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		parts = append(parts, col+" = ?")
		args = append(args, f.Eq[col])
	}

	for _, c := range f.Conds {
		op, ok := operators[strings.ToUpper(strings.TrimSpace(c.Op))]
		if !ok {
			return "", nil, fmt.Errorf("%w: %q", ErrBadOperator, c.Op)
		}
		if op == "IN" || op == "NOT IN" {
			vals, err := expandList(c.Val)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %s %s", ErrBadFilterValue, c.Col, op)
			}
			if len(vals) == 0 {
				// Empty IN matches nothing; empty NOT IN matches everything.
				if op == "IN" {
					parts = append(parts, "1 = 0")
				}
				continue
			}
			parts = append(parts, c.Col+" "+op+" ("+placeholders(len(vals))+")")
			args = append(args, vals...)
			continue
		}
		parts = append(parts, c.Col+" "+op+" ?")
		args = append(args, c.Val)
	}

	if raw := strings.TrimSpace(f.Raw); raw != "" {
		parts = append(parts, "("+raw+")")
		args = append(args, f.RawArgs...)
	}

	return strings.Join(parts, " AND "), args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func expandList(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("IN value must be a slice")
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// Order is one ORDER BY term. Direction must be ASC or DESC.
type Order struct {
	Col string
	Dir string
}

func buildOrder(order []Order) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	terms := make([]string, 0, len(order))
	for _, o := range order {
		dir := strings.ToUpper(strings.TrimSpace(o.Dir))
		if dir != "ASC" && dir != "DESC" {
			return "", fmt.Errorf("%w: %q on column %q", ErrBadOrderDirection, o.Dir, o.Col)
		}
		terms = append(terms, o.Col+" "+dir)
	}
	return " ORDER BY " + strings.Join(terms, ", "), nil
}
