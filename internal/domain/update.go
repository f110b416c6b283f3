package domain

import (
	"encoding/json"
	"errors"
)

// ErrEmptyUpdate is returned when an update names none of the mutable fields.
var ErrEmptyUpdate = errors.New("no fields to update")

// ErrNullReconciled is returned when reconciled is explicitly set to null.
var ErrNullReconciled = errors.New("reconciled cannot be null")

// Optional distinguishes an omitted JSON field from an explicit null and
// from a value.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns an Optional that clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		var zero T
		o.Null = true
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Ptr returns nil for a null Optional and a pointer to the value otherwise.
func (o Optional[T]) Ptr() *T {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}

// TransactionUpdate is a partial update of the mutable transaction fields.
// Omitted fields are left unchanged, null clears a nullable field.
type TransactionUpdate struct {
	CategoryID Optional[string]   `json:"category_id"`
	Reconciled Optional[bool]     `json:"reconciled"`
	Tags       Optional[[]string] `json:"tags"`
	Notes      Optional[string]   `json:"notes"`
}

// IsEmpty reports whether no field was supplied.
func (u *TransactionUpdate) IsEmpty() bool {
	return !u.CategoryID.Set && !u.Reconciled.Set && !u.Tags.Set && !u.Notes.Set
}

// Validate checks the update can be applied.
func (u *TransactionUpdate) Validate() error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if u.Reconciled.Set && u.Reconciled.Null {
		return ErrNullReconciled
	}
	return nil
}

// Apply writes the supplied fields onto tx.
func (u *TransactionUpdate) Apply(tx *Transaction) {
	if u.CategoryID.Set {
		tx.CategoryID = u.CategoryID.Ptr()
	}
	if u.Reconciled.Set && !u.Reconciled.Null {
		tx.Reconciled = u.Reconciled.Value
	}
	if u.Tags.Set {
		if u.Tags.Null {
			tx.Tags = nil
		} else {
			tx.Tags = append([]string(nil), u.Tags.Value...)
		}
	}
	if u.Notes.Set {
		tx.Notes = u.Notes.Ptr()
	}
}
