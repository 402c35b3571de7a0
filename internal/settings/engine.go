// Package settings implements the optimistic settings-update engine and the
// consent, user indexing and channel settings policies built on top of it.
package settings

import (
	"context"
	"errors"
)

// UpdateParams describes one settings mutation for UpdateSetting.
//
// T is the record type (a pointer type; the zero value means "no record").
// V is the requested value.
type UpdateParams[T comparable, V any] struct {
	// NewValue is the requested value for the setting.
	NewValue V

	// FetchCurrent loads the current record. It returns the zero value of T
	// when no record exists yet.
	FetchCurrent func(ctx context.Context) (T, error)

	// CheckAlreadySet validates the requested value against an existing
	// record. It is skipped when no record exists (a first write is always
	// allowed). Returning a *VetoError rejects the write.
	CheckAlreadySet func(existing T, newValue V) error

	// ApplyUpdate performs the write. It must decide create-vs-update based
	// on whether existing is the zero value, and returns the stored record.
	ApplyUpdate func(ctx context.Context, newValue V, existing T) (T, error)

	// OnChanged runs after a successful write. Its return value replaces the
	// updated record as the result of the whole update, which is how
	// cascading policies surface the cascaded record to the caller.
	OnChanged func(ctx context.Context, updated T) (T, error)

	// OnError receives veto errors instead of them being returned.
	OnError func(err error)
}

// UpdateSetting runs the fetch, validate, apply, react sequence shared by
// every settings mutation in the system.
//
// Veto errors raised by any step are routed to OnError and the zero value is
// returned with a nil error. All other errors propagate unchanged.
func UpdateSetting[T comparable, V any](ctx context.Context, params UpdateParams[T, V]) (T, error) {
	var zero T

	existing, err := params.FetchCurrent(ctx)
	if err != nil {
		return zero, err
	}

	if existing != zero && params.CheckAlreadySet != nil {
		if err := params.CheckAlreadySet(existing, params.NewValue); err != nil {
			return routeError[T](err, params.OnError)
		}
	}

	updated, err := params.ApplyUpdate(ctx, params.NewValue, existing)
	if err != nil {
		return routeError[T](err, params.OnError)
	}

	if params.OnChanged != nil {
		final, err := params.OnChanged(ctx, updated)
		if err != nil {
			return routeError[T](err, params.OnError)
		}

		return final, nil
	}

	return updated, nil
}

// routeError delivers veto errors to onError and passes everything else
// through to the caller.
func routeError[T comparable](err error, onError func(error)) (T, error) {
	var zero T

	var veto *VetoError
	if errors.As(err, &veto) {
		if onError != nil {
			onError(veto)
		}

		return zero, nil
	}

	return zero, err
}
