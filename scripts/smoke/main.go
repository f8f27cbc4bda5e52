package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

func main() {
	if err := run(); err != nil {
		log.Printf("smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	user := flag.String("user", "tester", "username to register or log in with")
	password := flag.String("password", "smoke-test-pass", "password for the user")
	room := flag.String("room", "Smoke Test", "room name to create")
	topic := flag.String("topic", "Testing", "room topic")
	text := flag.String("text", "hello from smoke test", "message text to post")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("cookie jar: %w", err)
	}
	client := &http.Client{Jar: jar}

	post := func(path string, form url.Values) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, *addr+path, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return client.Do(req)
	}

	// Register, falling back to login when the user already exists.
	resp, err := post("/register", url.Values{"username": {*user}, "password1": {*password}, "password2": {*password}})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		resp, err = post("/login", url.Values{"username": {*user}, "password": {*password}})
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("login: unexpected status %d", resp.StatusCode)
		}
	}
	fmt.Printf("Authenticated as %s\n", *user)

	resp, err = post("/room/create", url.Values{"name": {*room}, "topic": {*topic}})
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("create room: unexpected status %d", resp.StatusCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *addr+"/?q="+url.QueryEscape(*room), nil)
	if err != nil {
		return err
	}
	resp, err = client.Do(req)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	page, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read listing: %w", err)
	}

	roomPath := findRoomLink(string(page))
	if roomPath == "" {
		return fmt.Errorf("room %q not found in listing", *room)
	}
	fmt.Printf("Created room at %s\n", roomPath)

	resp, err = post(roomPath, url.Values{"body": {*text}})
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	page, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read room: %w", err)
	}
	if !strings.Contains(string(page), *text) {
		return fmt.Errorf("posted message not shown in room")
	}

	fmt.Println("Smoke test passed")
	return nil
}

// findRoomLink returns the first /room/<id> link on a listing page.
func findRoomLink(page string) string {
	const marker = `href="/room/`
	for rest := page; ; {
		i := strings.Index(rest, marker)
		if i < 0 {
			return ""
		}
		rest = rest[i+len(`href="`):]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			return ""
		}
		if link := rest[:end]; link != "/room/create" {
			return link
		}
	}
}
