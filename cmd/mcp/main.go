package main

import (
	"fmt"
	"os"

	"github.com/iammorganparry/clive/apps/recall/internal/mcp"
)

func main() {
	serverURL := os.Getenv("RECALL_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8741"
	}

	server := mcp.NewServer(serverURL, os.Getenv("API_KEY"))
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp server error: %s\n", err)
		os.Exit(1)
	}
}
