package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"log/slog"

	"tasknest/internal/auth"
	"tasknest/internal/session"
)

// tasknest-client drives the client-side session loop against a running
// API: restore the stored credential at startup, sign in with a bearer
// token, and keep the credential file in sync with every transition.
func main() {
	api := flag.String("api", "http://localhost:8080", "base URL of the Tasknest API")
	credentials := flag.String("credentials", defaultCredentialPath(), "path of the stored credential file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store := session.NewFileStore(*credentials)
	manager := session.NewManager(logger, session.NewPersistor(store, logger))
	state := manager.Restore(store)

	switch flag.Arg(0) {
	case "", "status":
		printState(state)

	case "login":
		rawToken := flag.Arg(1)
		if rawToken == "" {
			fmt.Fprintln(os.Stderr, "usage: tasknest-client login <token>")
			os.Exit(2)
		}
		result, err := login(http.DefaultClient, *api, rawToken)
		if err != nil {
			printState(manager.Dispatch(session.SignInFailure{Message: err.Error()}))
			os.Exit(1)
		}
		printState(manager.Dispatch(session.SignInSuccess{
			User:        result.User,
			IsNewUser:   result.IsNewUser,
			AccessToken: rawToken,
		}))

	case "logout":
		printState(manager.Dispatch(session.Logout{}))

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want status, login or logout)\n", flag.Arg(0))
		os.Exit(2)
	}
}

// loginResult is the data half of a successful login response.
type loginResult struct {
	User      *auth.User `json:"user"`
	IsNewUser bool       `json:"isNewUser"`
}

// login submits the bearer token to the API and unpacks the response
// envelope. API-reported failures come back as errors carrying the
// machine code and message.
func login(client *http.Client, baseURL, rawToken string) (*loginResult, error) {
	body, err := json.Marshal(map[string]string{"token": rawToken})
	if err != nil {
		return nil, fmt.Errorf("encode login request: %w", err)
	}

	resp, err := client.Post(baseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope struct {
		Success bool        `json:"success"`
		Data    loginResult `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	if !envelope.Success || envelope.Data.User == nil {
		if envelope.Error != nil {
			return nil, fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	return &envelope.Data, nil
}

func printState(state session.State) {
	switch {
	case state.IsAuthenticated:
		fmt.Printf("signed in as %s <%s>\n", state.User.Name, state.User.Email)
	case state.Err != nil:
		fmt.Printf("not signed in: %s\n", state.Err.Message)
	default:
		fmt.Println("not signed in")
	}
}

func defaultCredentialPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "tasknest", "credential.json")
}
