package authkit

import "context"

// PromptResult is the outcome of a platform biometric prompt.
type PromptResult int

const (
	PromptSuccess PromptResult = iota
	PromptCancelled
	PromptFailed
)

// BiometricGate is the platform biometric port. The SDK never triggers the
// prompt itself; callers run it before a biometric login and hand over the
// outcome. Implementations live in platform glue code.
type BiometricGate interface {
	// CheckSupport reports whether the device has biometric hardware with
	// at least one enrolled credential.
	CheckSupport(ctx context.Context) (bool, error)

	// Prompt shows the platform biometric prompt and blocks until it
	// resolves.
	Prompt(ctx context.Context) (PromptResult, error)
}

// BiometricAvailable reports whether a biometric login can be attempted:
// device support plus a stored identifier and an enabled flag from a prior
// password login.
func (c *Client) BiometricAvailable(ctx context.Context) (bool, error) {
	if c.gate == nil {
		return false, nil
	}

	supported, err := c.gate.CheckSupport(ctx)
	if err != nil || !supported {
		return false, err
	}

	if _, err := c.store.Get(ctx, keyStoredIdentifier); err != nil {
		return false, nil
	}
	enabled, err := c.store.Get(ctx, keyBiometricEnabled)
	if err != nil {
		return false, nil
	}
	return enabled == "true", nil
}

// EnableBiometric records the identifier used for biometric re-auth and
// flips the enabled flag. Call after a successful password login once the
// user opts in.
func (c *Client) EnableBiometric(ctx context.Context, identifier string) error {
	return setAll(ctx, c.store, map[string]string{
		keyStoredIdentifier: identifier,
		keyBiometricEnabled: "true",
	})
}

// DisableBiometric clears the stored identifier and the enabled flag.
func (c *Client) DisableBiometric(ctx context.Context) error {
	return deleteAll(ctx, c.store, keyStoredIdentifier, keyBiometricEnabled)
}
