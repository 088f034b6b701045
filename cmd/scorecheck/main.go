package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/scorepad/internal/arbiter"
	"github.com/park285/scorepad/internal/document"
	"github.com/park285/scorepad/internal/scoreclient"
	"github.com/park285/scorepad/pkg/scoredto"
)

// scorecheck reads a game and, when SCOREPAD_PATCH is set, applies it as a
// PATCH body with the configured credentials.
func main() {
	baseURL := os.Getenv("SCOREPAD_BASE_URL")
	gameID := os.Getenv("SCOREPAD_GAME_ID")
	patch := os.Getenv("SCOREPAD_PATCH")
	cred := arbiter.Credentials{
		AdminToken: os.Getenv("SCOREPAD_ADMIN_TOKEN"),
		SessionID:  os.Getenv("SCOREPAD_SESSION_ID"),
	}

	if baseURL == "" {
		log.Fatal("SCOREPAD_BASE_URL is required")
	}

	client := scoreclient.NewClient(baseURL, scoreclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		log.Fatalf("/health error: %v", err)
	}
	log.Println("/health ok")

	if gameID == "" {
		log.Println("SCOREPAD_GAME_ID not set; skipping game check")
		return
	}

	doc, err := client.GetGame(ctx, gameID, cred)
	if err != nil {
		report("GET", err)
		return
	}
	log.Printf("GET ok: round=%v tables=%v", doc[document.FieldCurrentRound], doc.TableKeys())

	if patch == "" {
		return
	}
	update, err := document.Decode([]byte(patch))
	if err != nil {
		log.Fatalf("SCOREPAD_PATCH: %v", err)
	}
	merged, err := client.PatchGame(ctx, gameID, update, cred)
	if err != nil {
		report("PATCH", err)
		return
	}
	out, _ := merged.Encode()
	fmt.Println(string(out))
}

func report(op string, err error) {
	var apiErr *scoredto.APIError
	if errors.As(err, &apiErr) {
		log.Printf("%s rejected: status=%d code=%s message=%s", op, apiErr.Status, apiErr.Code, apiErr.Message)
		return
	}
	log.Printf("%s error: %v", op, err)
}
