package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/service"
	"golang.org/x/term"
)

// defaultSecret mirrors the config fallback. Tokens signed with it are only
// good against a server that was also left on the default.
const defaultSecret = "change-this-to-a-secure-random-string"

func main() {
	var (
		userID int
		groups string
		expiry time.Duration
	)
	flag.IntVar(&userID, "user", 0, "Learner user id")
	flag.StringVar(&groups, "groups", "", "Comma-separated group ids, e.g. 1,2")
	flag.DurationVar(&expiry, "expiry", 0, "Token lifetime (default JWT_EXPIRY_HOURS)")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	if expiry > 0 {
		cfg.JWTExpiry = expiry
	}

	interactive := term.IsTerminal(int(syscall.Stdin))
	reader := bufio.NewReader(os.Stdin)

	// ─── CLI Input ─────────────────────────────────────────────────────
	if userID <= 0 {
		if !interactive {
			fmt.Fprintln(os.Stderr, "Error: -user is required")
			os.Exit(2)
		}
		fmt.Print("Enter User ID: ")
		line, _ := reader.ReadString('\n')
		id, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || id <= 0 {
			fmt.Println("Error: User ID must be a positive number")
			os.Exit(2)
		}
		userID = id
	}

	groupIDs, err := parseGroups(groups)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if cfg.JWTSecret == defaultSecret && interactive {
		fmt.Print("JWT_SECRET is not set. Enter Secret (blank keeps default): ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Println("Error reading secret")
			os.Exit(1)
		}
		if s := strings.TrimSpace(string(secret)); s != "" {
			cfg.JWTSecret = s
		}
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	token, err := service.NewAuthService(cfg).GenerateLearnerToken(userID, groupIDs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Piped output carries only the token so it can be captured by scripts.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println(token)
		return
	}
	fmt.Printf("\nLearner %d, groups %v, valid for %s\n\n", userID, groupIDs, cfg.JWTExpiry)
	fmt.Printf("Authorization: Bearer %s\n", token)
}

// parseGroups turns "1, 2,3" into []int{1, 2, 3}. Empty input yields nil.
func parseGroups(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid group id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
