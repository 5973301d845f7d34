// FilePath: cmd/hub/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/airflowiq/hub/api/middleware"
	"github.com/airflowiq/hub/internal/config"
	"github.com/airflowiq/hub/internal/models"
	"github.com/airflowiq/hub/internal/server"
	tm "github.com/buger/goterm"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	issueFor := flag.String("issue-token", "", "print a signed access token for the given user id and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of tokens printed by -issue-token")
	flag.Parse()

	// Initialize version info
	nuts.InitVersion()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *issueFor != "" {
		token, err := middleware.IssueToken(cfg.Auth.JWTSecret, *issueFor, []string{models.RoleUser}, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	// Clear console and draw logo
	ClearConsole()
	DrawLogo()
	nuts.L.Infof("[Main] Starting AirflowIQ Hub v%s", nuts.GetVersion())

	// Create and start server
	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}

// ClearConsole clears the console screen
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		"    ___   _       ______              ________ ",
		"   /   | (_)_____/ __/ /___ _      __/  _/ __ \\",
		"  / /| |/ / ___/ /_/ / __ \\ | /| / // // / / /",
		" / ___ / / /  / __/ / /_/ / |/ |/ // // /_/ / ",
		"/_/  |_/_/_/  /_/ /_/\\____/|__/|__/___/\\___\\_\\ ",
		"..............................................  " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
