// Command callsim is an interactive console for exercising the turn
// engine without a telephony gateway. It seeds a demo company, starts a
// call, and feeds stdin lines through ProcessCallerTurn.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/tradeline-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/tradeline-ai-platform/internal/app/bootstrap"
	"github.com/wolfman30/tradeline-ai-platform/internal/company"
	appconfig "github.com/wolfman30/tradeline-ai-platform/internal/config"
	"github.com/wolfman30/tradeline-ai-platform/internal/trace"
	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

const demoCompanyID = "demo-hvac"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("load AWS config: %v", err)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		log.Fatal("redis is required (set REDIS_ADDR)")
	}

	configStore := company.NewStore(redisClient)
	if err := configStore.Save(ctx, demoConfig()); err != nil {
		log.Fatalf("seed demo config: %v", err)
	}

	pool := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}

	eng, err := bootstrap.BuildEngine(ctx, cfg, awsCfg, redisClient, pool, prometheus.NewRegistry(), logger)
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}

	callID := uuid.NewString()
	startedAt := time.Now().UTC()
	_, greeting := eng.InitCallContext(ctx, callID, demoCompanyID, "hvac", "")

	fmt.Println("call simulator — type caller utterances, 'exit' to hang up")
	fmt.Printf("call_id: %s\n\n", callID)
	fmt.Printf("agent: %s\n", greeting)

	turns := 0
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("caller: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		turns++
		result := eng.ProcessCallerTurn(ctx, demoCompanyID, callID, "caller", line)
		fmt.Printf("agent [%s]: %s\n", result.Decision.Action, result.NextPrompt)
		if result.Decision.FallbackUsed {
			fmt.Println("        (deterministic fallback)")
		}
		if len(result.Decision.GuardrailsTriggered) > 0 {
			fmt.Printf("        (guardrails: %s)\n", strings.Join(result.Decision.GuardrailsTriggered, ", "))
		}
		if result.Decision.Action == "close_call" {
			break
		}
	}

	if err := eng.FinalizeCall(ctx, callID, startedAt, time.Now().UTC(), trace.UsageSummary{
		CompanyID: demoCompanyID,
		Turns:     turns,
		Outcome:   "simulated",
	}); err != nil {
		log.Printf("finalize: %v", err)
	}
	fmt.Println("\ncall finalized")
}

// demoConfig is a small HVAC company with enough knowledge configured to
// exercise all three tiers and the booking rules.
func demoConfig() *company.Config {
	return &company.Config{
		CompanyID: demoCompanyID,
		Name:      "Summit Heating & Air",
		Trade:     "hvac",
		Variables: map[string]string{
			"service_area":  "the Denver metro area",
			"hours":         "Monday through Friday, 8am to 6pm",
			"dispatch_fee":  "$89",
			"phone_hotline": "(303) 555-0142",
		},
		Scenarios: []company.Scenario{
			{
				ID:       "hours",
				Keywords: []string{"hours", "open", "closed"},
				Answer:   "We're open Monday through Friday, 8am to 6pm.",
			},
			{
				ID:       "service-area",
				Keywords: []string{"area", "serve", "location"},
				Answer:   "We serve the Denver metro area.",
			},
		},
		QAPairs: []company.QAPair{
			{ID: "financing", Question: "Do you offer financing?", Answer: "Yes, we offer financing on new system installs through our partner lender."},
			{ID: "brands", Question: "What brands do you service?", Answer: "We service all major brands including Carrier, Trane, and Lennox."},
		},
		Flags: company.FeatureFlags{OrchestratorEnabled: true},
		Capabilities: company.Capabilities{
			EmergencyService: true,
			WeekendService:   false,
		},
		BookingRules: []company.BookingRule{
			{ID: "emergency-dispatch", Priority: "emergency", SameDayAllowed: true, WeekendAllowed: true, TimeWindow: "ASAP"},
			{ID: "standard-weekday", Priority: "normal", DaysOfWeek: []string{"mon", "tue", "wed", "thu", "fri"}, TimeWindow: "8am-12pm"},
		},
	}
}
