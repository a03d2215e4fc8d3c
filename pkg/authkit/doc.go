/*
Package authkit is the client-side authentication layer for mobile and
desktop apps talking to the backend API.

# Overview

The package owns the full session lifecycle: acquiring tokens through the
supported login modalities, persisting them in an encrypted secret store,
attaching them to outgoing requests, keeping them fresh, and tearing the
session down on logout or server-side invalidation.

# Client

A single Client is created at app start and shared for the process lifetime:

	store, err := sqlite.NewStore("file:secrets.db", sealer)
	client := authkit.New("https://api.example.com",
		authkit.WithSecretStore(store),
		authkit.WithLogger(log),
		authkit.WithPlatform("ios"),
	)

All backend traffic that needs authentication should go through client.HTTP():
its interceptor chain stamps request IDs, logs, injects the bearer token, and
reacts to 401 responses.

# Login Modalities

Password login, with MFA challenge handling:

	result, err := client.Login(ctx, "user@example.com", "password")
	var challenge *authkit.MFAChallengeError
	if errors.As(err, &challenge) {
		result, err = client.LoginWithOTP(ctx, challenge, "totp", code)
	}

Biometric re-auth, after the platform prompt has been shown by the caller:

	ok, _ := client.BiometricAvailable(ctx)
	if ok {
		outcome, _ := gate.Prompt(ctx)
		result, err := client.LoginWithBiometric(ctx, outcome)
	}

Google sign-in, via the device-side OIDC flow:

	flow, err := authkit.NewGoogleFlow(ctx, authkit.GoogleConfig{ClientID: id})
	req, err := flow.AuthRequest()
	// open req.URL in the system browser, receive code on the redirect
	identity, err := flow.Exchange(ctx, code, req)
	result, err := client.LoginWithGoogle(ctx, identity.AccessToken)

# Sessions Without Tokens

Some backend flows establish a session without returning a bearer token:
cookie-setting responses and bare 201s. These are stored as implicit
sessions; requests then rely on the cookie jar instead of an Authorization
header, and LoginResult.Implicit reports the distinction. ValidateSession is
the authoritative check when the session's provenance is uncertain.

# Token Refresh

Refresh is explicit and single-flight. Concurrent Refresh calls, and any
requests issued while a refresh is in flight, attach to the active call and
share its outcome in arrival order. A failed refresh clears the stored
credential set and notifies logout; it is indistinguishable from signing out.

# Errors

Every failure surfaces as *AuthError with a code from a closed taxonomy
(INVALID_CREDENTIALS, NETWORK_ERROR, TOKEN_EXPIRED, and so on). Compare with
errors.Is against a sentinel:

	if errors.Is(err, &authkit.AuthError{Code: authkit.CodeInvalidCredentials}) {
		// wrong password
	}

Network-level failures set AuthError.Network so UIs can frame them as
connectivity problems rather than rejections.

# Observable State

The client reports transitions into a Notifier. The default AuthState
implementation is an observable container screens can subscribe to:

	state := authkit.NewAuthState()
	unsubscribe := state.Subscribe(func(s authkit.State) {
		render(s)
	})
	defer unsubscribe()

	client := authkit.New(baseURL, authkit.WithNotifier(state))

# Thread Safety

Client, AuthState and the secret stores are all safe for concurrent use.
*/
package authkit
