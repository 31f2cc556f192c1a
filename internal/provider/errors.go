package provider

import "errors"

// Sentinel errors for generation failures. The responder treats them all
// the same way (abort the run); they exist so logs and tests can tell the
// failure modes apart.
var (
	// ErrNoCredentials indicates no API key is configured.
	ErrNoCredentials = errors.New("provider: missing API credentials")

	// ErrProviderDown indicates a transport failure or a non-2xx
	// response from the generation endpoint.
	ErrProviderDown = errors.New("provider: generation endpoint unavailable")

	// ErrEmptyCompletion indicates a 2xx response that carried no
	// usable candidate text.
	ErrEmptyCompletion = errors.New("provider: empty completion")
)
