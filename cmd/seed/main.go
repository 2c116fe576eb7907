// seed issues a login challenge without sending email and prints the link
// that redeems it, for logging in to a local instance.
// Run: go run ./cmd/seed -email you@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/p3tuh/notello/config"
	"github.com/p3tuh/notello/internal/bootstrap"
)

const defaultEmail = "seed@test.local"

func main() {
	emailAddr := flag.String("email", defaultEmail, "address to issue the login challenge for")
	flag.Parse()

	if strings.Contains(*emailAddr, ":") {
		log.Fatalf("email %q must not contain ':'", *emailAddr)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := bootstrap.NewLogger(cfg.Env, cfg.SlogLevel())
	deps, err := bootstrap.Open(ctx, cfg, "notello-seed", logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer deps.Close()

	id, err := deps.Challenges.Create(ctx, *emailAddr, time.Now())
	if err != nil {
		log.Fatalf("create challenge: %v", err)
	}

	link := strings.TrimRight(cfg.AppBaseURL, "/") + "/authenticate?token=" + url.QueryEscape(id)

	fmt.Fprintf(os.Stdout, "challenge for %s (valid for 1h, single use)\n\n", *emailAddr)
	fmt.Fprintf(os.Stdout, "open:\n  %s\n\n", link)
	fmt.Fprintf(os.Stdout, "or:\n  curl -si '%s' | grep -i set-cookie\n", link)
}
