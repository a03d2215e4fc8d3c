package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/wrenlabs/authkit/internal/app"
	"github.com/wrenlabs/authkit/pkg/authkit"
)

const usage = `usage: authctl <command> [args]

commands:
  login <identifier>     authenticate with a password (prompted)
  logout                 end the current session
  whoami                 show the authenticated profile
  status                 show local session status
  refresh                force a token refresh
  register <email>       create a new account (password prompted)
  forgot <email>         request a password reset email
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(app.LoadConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "authctl: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := run(ctx, application, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "authctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	switch command {
	case "login":
		return cmdLogin(ctx, a, args)
	case "logout":
		return a.Client.Logout(ctx)
	case "whoami":
		return cmdWhoami(ctx, a)
	case "status":
		return cmdStatus(ctx, a)
	case "refresh":
		return cmdRefresh(ctx, a)
	case "register":
		return cmdRegister(ctx, a, args)
	case "forgot":
		return cmdForgot(ctx, a, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func cmdLogin(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return errors.New("login requires exactly one identifier argument")
	}

	password, err := promptSecret("password: ")
	if err != nil {
		return err
	}

	result, err := a.Client.Login(ctx, args[0], password)

	var challenge *authkit.MFAChallengeError
	if errors.As(err, &challenge) {
		code, promptErr := promptSecret(fmt.Sprintf("code (%s): ", challenge.PreferredMethod()))
		if promptErr != nil {
			return promptErr
		}
		result, err = a.Client.LoginWithOTP(ctx, challenge, challenge.PreferredMethod(), code)
	}
	if err != nil {
		return err
	}

	if result.Implicit() {
		fmt.Println("logged in (server-side session)")
	} else {
		fmt.Println("logged in")
	}
	return nil
}

func cmdWhoami(ctx context.Context, a *app.App) error {
	profile, err := a.Client.Profile(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("id:    %s\n", profile.ID)
	fmt.Printf("email: %s\n", profile.Email)
	if profile.Name != "" {
		fmt.Printf("name:  %s\n", profile.Name)
	}
	return nil
}

func cmdStatus(ctx context.Context, a *app.App) error {
	valid, err := a.Client.ValidateSession(ctx)
	if err != nil {
		return err
	}

	if !valid {
		fmt.Println("no session")
		return nil
	}

	fmt.Println("session: active")

	creds, err := a.Client.StoredCredentials(ctx)
	if err == nil && !creds.ExpiresAt.IsZero() {
		if creds.Expired(time.Now()) {
			fmt.Println("token:   expired (refresh needed)")
		} else {
			fmt.Printf("token:   valid until %s\n", creds.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

func cmdRefresh(ctx context.Context, a *app.App) error {
	creds, err := a.Client.Refresh(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("refreshed, expires %s\n", creds.ExpiresAt.Format("2006-01-02 15:04:05"))
	return nil
}

func cmdRegister(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return errors.New("register requires exactly one email argument")
	}

	password, err := promptSecret("password: ")
	if err != nil {
		return err
	}

	result, err := a.Client.Register(ctx, authkit.RegisterRequest{
		Email:    args[0],
		Password: password,
	})
	if err != nil {
		return err
	}

	if result.AccessToken != "" || result.Implicit() {
		fmt.Println("registered and logged in")
	} else {
		fmt.Println("registered")
	}
	return nil
}

func cmdForgot(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 1 {
		return errors.New("forgot requires exactly one email argument")
	}

	if err := a.Client.ForgotPassword(ctx, args[0]); err != nil {
		return err
	}

	fmt.Println("reset email requested")
	return nil
}

// promptSecret reads a line from stdin. Terminal echo suppression is left to
// the caller's environment; authctl is a development tool.
func promptSecret(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
