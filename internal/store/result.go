package store

import (
	"errors"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Reason describes why an operation landed in the error status. Expected
// data conditions are reported here instead of as Go errors.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonNoRows     Reason = "NO ROWS RETURNED"
	ReasonPrimaryKey Reason = "PRIMARY KEY VIOLATION"
	ReasonUnique     Reason = "UNIQUE CONSTRAINT VIOLATION"
	ReasonForeignKey Reason = "FOREIGN KEY VIOLATION"
	ReasonConstraint Reason = "CONSTRAINT VIOLATION"
	ReasonQuery      Reason = "QUERY FAILED"
)

// Result is the uniform envelope returned by every store operation.
type Result struct {
	Status       Status
	Reason       Reason
	Rows         []map[string]any
	LastInsertID int64
	Affected     int64
	MoreInfo     string
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func success() Result {
	return Result{Status: StatusSuccess}
}

func failure(reason Reason, moreInfo string) Result {
	return Result{Status: StatusError, Reason: reason, MoreInfo: moreInfo}
}

// classify maps a database error onto an envelope, keeping the offending
// column text when SQLite includes it in the message.
func classify(err error) Result {
	var serr *msqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return failure(ReasonPrimaryKey, offendingColumns(err))
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return failure(ReasonUnique, offendingColumns(err))
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return failure(ReasonForeignKey, offendingColumns(err))
		case sqlite3lib.SQLITE_CONSTRAINT:
			return failure(ReasonConstraint, offendingColumns(err))
		}
		if serr.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT {
			return failure(ReasonConstraint, offendingColumns(err))
		}
	}
	return failure(ReasonQuery, err.Error())
}

// offendingColumns pulls the "table.column" list out of SQLite constraint
// messages such as "UNIQUE constraint failed: stocks.ticker, stocks.exchange".
func offendingColumns(err error) string {
	msg := err.Error()
	idx := strings.Index(msg, "failed: ")
	if idx < 0 {
		return msg
	}
	return strings.TrimSpace(msg[idx+len("failed: "):])
}
