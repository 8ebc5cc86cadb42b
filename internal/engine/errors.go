package engine

import (
	"errors"
	"fmt"

	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/records"
	"github.com/ItsJustAGitHubMichealWhosGonnaSeeIt5Ppl/StockGame-sub000/internal/store"
)

// The engine's failure taxonomy. Callers branch with errors.Is; detail is
// carried in the wrapped message, never in untyped values.
var (
	ErrNotFound         = records.ErrNotFound
	ErrAmbiguous        = records.ErrAmbiguous
	ErrValidation       = errors.New("validation failed")
	ErrConstraint       = errors.New("constraint violation")
	ErrNotAllowed       = errors.New("not allowed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrProvider         = errors.New("provider failure")
)

// ConstraintKind narrows ErrConstraint to the store's sub-reason.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "primary_key"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintOther      ConstraintKind = "other"
)

// ConstraintError wraps ErrConstraint with the violated kind and the
// offending column text when the store could extract it.
type ConstraintError struct {
	Kind ConstraintKind
	Info string
}

func (c *ConstraintError) Error() string {
	if c.Info == "" {
		return fmt.Sprintf("%v (%s)", ErrConstraint, c.Kind)
	}
	return fmt.Sprintf("%v (%s): %s", ErrConstraint, c.Kind, c.Info)
}

func (c *ConstraintError) Unwrap() error {
	return ErrConstraint
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// envelopeError converts a store error envelope into a typed failure.
// ReasonNoRows is not handled here: list callers treat it as an empty set
// and single-row callers surface ErrNotFound via records.One.
func envelopeError(res store.Result) error {
	switch res.Reason {
	case store.ReasonPrimaryKey:
		return &ConstraintError{Kind: ConstraintPrimaryKey, Info: res.MoreInfo}
	case store.ReasonUnique:
		return &ConstraintError{Kind: ConstraintUnique, Info: res.MoreInfo}
	case store.ReasonForeignKey:
		return &ConstraintError{Kind: ConstraintForeignKey, Info: res.MoreInfo}
	case store.ReasonConstraint:
		return &ConstraintError{Kind: ConstraintOther, Info: res.MoreInfo}
	default:
		return fmt.Errorf("store operation failed: %s", res.MoreInfo)
	}
}
