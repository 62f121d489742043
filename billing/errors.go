package billing

import "errors"

// Error taxonomy surfaced to the HTTP layer. All provider and store failures
// are wrapped into one of these so handlers can map them to status codes
// without inspecting stripe internals.
var (
	// ErrNotFound: account, subscription, add-on or charge does not exist or
	// does not belong to the given account.
	ErrNotFound = errors.New("billing: not found")

	// ErrProviderLookup: the provider does not know an id our local record
	// points at. Indicates drift between local and remote state.
	ErrProviderLookup = errors.New("billing: provider lookup failed")

	// ErrProvider: the provider call failed or returned an unexpected state.
	ErrProvider = errors.New("billing: provider error")

	// ErrPlanResolution: the remote subscription carries no item matching the
	// locally stored item id, or a stored plan id is missing from the addon
	// catalog. Consistency bug, worth alerting on.
	ErrPlanResolution = errors.New("billing: plan resolution failed")

	// ErrInvalidState: the requested transition is not valid from the current
	// subscription state.
	ErrInvalidState = errors.New("billing: invalid state")
)
