// Command authcli signs in against the marketplace API and prints the current account.
// Expired access tokens are renewed through the refresh endpoint automatically.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"github.com/marketplace-auth/internal/sessionclient"
)

func main() {
	base := flag.String("url", "http://localhost:8080", "gateway or auth service base URL")
	role := flag.String("role", "user", "account role: user or seller")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: authcli -email EMAIL -password PASSWORD [-role user|seller] [-url URL]")
		os.Exit(2)
	}
	if err := run(strings.TrimRight(*base, "/"), *role, *email, *password); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type endpoints struct {
	login, refresh, current string
}

func endpointsFor(role string) (endpoints, error) {
	switch role {
	case "user":
		return endpoints{"/api/user-login", "/api/refresh-token", "/api/logged-in-user"}, nil
	case "seller":
		return endpoints{"/api/login-seller", "/api/seller-refresh-token", "/api/logged-in-seller"}, nil
	}
	return endpoints{}, fmt.Errorf("unknown role %q", role)
}

func run(base, role, email, password string) error {
	ep, err := endpointsFor(role)
	if err != nil {
		return err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	hc := &http.Client{Jar: jar, Timeout: 15 * time.Second}
	client := sessionclient.New(hc, base+ep.refresh, sessionclient.WithSessionEndedHandler(func() {
		fmt.Fprintln(os.Stderr, "session ended, sign in again")
	}))

	ctx := context.Background()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+ep.login, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// Bad credentials are a 401 too; they must not be mistaken for an expired session.
	if _, err := call(hc, req); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, base+ep.current, nil)
	if err != nil {
		return err
	}
	out, err := call(client, req)
	if err != nil {
		return fmt.Errorf("fetch account: %w", err)
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, out, "", "  ") != nil {
		pretty.Write(out)
	}
	fmt.Println(pretty.String())
	return nil
}

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

func call(c doer, req *http.Request) ([]byte, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(out, &e) == nil && e.Message != "" {
			return nil, fmt.Errorf("%s (%d)", e.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return out, nil
}
