// Command llmtest is a manual smoke test for the configured LLM providers.
// It sends one small scheduling conversation through each provider that has
// credentials in the environment and prints the reply plus token usage.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/clinicasanmiguel/riley/internal/assistant"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := assistant.LLMRequest{
		System: []string{
			"You are Riley, the scheduling assistant for Clinica San Miguel. Keep responses brief and helpful.",
		},
		Messages: []assistant.ChatMessage{
			{Role: assistant.ChatRoleUser, Content: "Hola, necesito una cita para un examen fisico."},
			{Role: assistant.ChatRoleAssistant, Content: "Con gusto. Que dia le conviene para su examen fisico?"},
			{Role: assistant.ChatRoleUser, Content: "El proximo martes por la manana, si es posible."},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	}

	fmt.Println("LLM Provider Test")

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		fmt.Println("\n[1] Skipping Gemini test (GEMINI_API_KEY not set)")
	} else {
		fmt.Println("\n[1] Testing Gemini directly...")
		client, err := assistant.NewGeminiClient(ctx, geminiKey, os.Getenv("GEMINI_MODEL_ID"))
		if err != nil {
			fmt.Printf("    failed to create Gemini client: %v\n", err)
		} else {
			runOnce(ctx, client, req)
		}
	}

	fmt.Println("\n[2] Bedrock is exercised through the fallback path in the API server;")
	fmt.Println("    set LLM_PROVIDER=bedrock and BEDROCK_MODEL_ID to make it primary.")
}

func runOnce(ctx context.Context, client assistant.LLMClient, req assistant.LLMRequest) {
	start := time.Now()
	resp, err := client.Complete(ctx, req)
	if err != nil {
		fmt.Printf("    error: %v\n", err)
		return
	}
	fmt.Printf("    reply (%v):\n    %s\n", time.Since(start).Round(time.Millisecond), resp.Text)
	fmt.Printf("    tokens: in=%d out=%d\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
}
