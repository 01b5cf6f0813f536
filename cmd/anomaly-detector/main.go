package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-anomaly-triage/internal/adapters/smtpsource"
	"github.com/mikey/llm-anomaly-triage/internal/adapters/store"
	"github.com/mikey/llm-anomaly-triage/internal/config"
	"github.com/mikey/llm-anomaly-triage/internal/core"
	"github.com/mikey/llm-anomaly-triage/internal/factory"
	"github.com/mikey/llm-anomaly-triage/internal/logging"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "bedrock", "LLM provider (bedrock, gemini, openai)")
	maxTokens   = flag.Int("max-tokens", 4000, "Maximum tokens for LLM response")
	temperature = flag.Float64("temperature", 0.0, "Temperature for LLM generation")
	topP        = flag.Float64("top-p", 0.9, "Top-p for LLM generation")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-3-haiku-20240307-v1:0", "Bedrock model ID")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Pipeline flags
	registryFile = flag.String("accounts", "./configs/accounts.yaml", "Path to the account registry file")
	maxBodySize  = flag.Int("max-body-size", 8000, "Maximum email body size to analyze")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cfg *config.Config
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		cfg = createConfigFromFlags()
	}

	llmClient, err := factory.NewLLMFactory(cfg, logger).CreateLLMClient()
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	triageStore := store.NewMemoryStore(0, logger)
	service, err := factory.NewServiceFactory(cfg, logger).CreateService(llmClient, triageStore)
	if err != nil {
		logger.Fatal("Failed to build pipeline", zap.Error(err))
	}

	email, err := readEmail(logger)
	if err != nil {
		logger.Fatal("Failed to read email", zap.Error(err))
	}

	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", email.From)
	fmt.Printf("Subject: %s\n", email.Subject)
	fmt.Printf("Body length: %d bytes\n", len(email.TextBody)+len(email.HTMLBody))
	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetString("llm.provider"))

	startTime := time.Now()
	cards, err := service.ProcessEmail(context.Background(), email)
	if err != nil {
		logger.Fatal("Failed to process email", zap.Error(err))
	}
	duration := time.Since(startTime)

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Cards produced: %d\n", len(cards))
	fmt.Printf("Processing time: %v\n", duration)

	for i, card := range cards {
		rec := card.Record
		fmt.Printf("\n--- Card %d ---\n", i+1)
		fmt.Printf("ID: %s\n", card.ID)
		fmt.Printf("Account: %s (%s)\n", rec.AccountID, rec.AccountName)
		fmt.Printf("Impact: %.2f %s\n", rec.Impact, rec.Currency)
		fmt.Printf("Urgency: %s\n", rec.Urgency)
		fmt.Printf("Confidence: %s", rec.Confidence)
		if rec.NeedsReview {
			fmt.Printf(" (needs review)")
		}
		fmt.Printf("\n")
		fmt.Printf("Console link: %s\n", card.ConsoleLink)
		fmt.Printf("\n%s\n", card.Summary)
	}

	if closer, ok := llmClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}
}

// readEmail parses a raw message from the input file or stdin
func readEmail(logger *zap.Logger) (*core.RawEmail, error) {
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file %s: %w", *inputFile, err)
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}

	bodies, err := smtpsource.ExtractBodies(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract email bodies: %w", err)
	}

	email := &core.RawEmail{
		ID:         msg.Header.Get("Message-ID"),
		Subject:    msg.Header.Get("Subject"),
		From:       msg.Header.Get("From"),
		TextBody:   bodies.Text,
		HTMLBody:   bodies.HTML,
		ReceivedAt: time.Now().UTC(),
	}
	if email.ID == "" {
		email.ID = fmt.Sprintf("cli-%d", time.Now().UnixNano())
	}
	if addr, err := mail.ParseAddress(email.From); err == nil {
		email.From = addr.Address
		email.FromName = addr.Name
	}
	return email, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", *provider)

	switch *provider {
	case "bedrock":
		v.Set("bedrock.region", *bedrockRegion)
		v.Set("bedrock.model_id", *bedrockModelID)
		v.Set("bedrock.max_tokens", *maxTokens)
		v.Set("bedrock.temperature", *temperature)
		v.Set("bedrock.top_p", *topP)
	case "gemini":
		v.Set("gemini.api_key", *geminiAPIKey)
		v.Set("gemini.model_name", *geminiModelName)
		v.Set("gemini.max_tokens", *maxTokens)
		v.Set("gemini.temperature", *temperature)
		v.Set("gemini.top_p", *topP)
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
		v.Set("openai.max_tokens", *maxTokens)
		v.Set("openai.temperature", *temperature)
		v.Set("openai.top_p", *topP)
	}

	v.Set("accounts.registry_file", *registryFile)
	v.Set("pipeline.max_body_size", *maxBodySize)

	return config.NewFromViper(v)
}
