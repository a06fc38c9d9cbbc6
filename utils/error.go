package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrInvalidTransition reports an illegal state-machine move, e.g. marking a
// part-paid invoice fictive.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrPermissionDenied reports an edit-locked invoice or insufficient caller
// privilege.
var ErrPermissionDenied = errors.New("permission denied")

// ErrNothingToDo is the non-failure outcome of mark-as-sold when no item was
// in reserved state. Callers surface it as an informational message.
var ErrNothingToDo = errors.New("nothing to do")

// ErrStoreUnavailable means the canonical tables are not provisioned. Writes
// degrade to the legacy mirror; this is reported, not fatal.
var ErrStoreUnavailable = errors.New("canonical store unavailable")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// ValidationError carries field-level detail for malformed input.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field string, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ShortageError describes one line item requesting more than is available.
type ShortageError struct {
	ProductId int             `json:"product_id"`
	Name      string          `json:"name"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

func (e ShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (requested=%s, available=%s)",
		strings.TrimSpace(e.Name), e.Requested.String(), e.Available.String())
}

// ShortageListError aggregates every shortage of one save so the caller can
// report all short items at once. The save is aborted; nothing commits.
type ShortageListError []ShortageError

func (e ShortageListError) Error() string {
	msgs := make([]string, 0, len(e))
	for _, s := range e {
		msgs = append(msgs, s.Error())
	}
	return strings.Join(msgs, "; ")
}

func AsShortageList(err error) (ShortageListError, bool) {
	var list ShortageListError
	if errors.As(err, &list) {
		return list, true
	}
	return nil, false
}
