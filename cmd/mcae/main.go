// Command mcae is the composition root that wires the Token Accountant,
// Knowledge Extractor, RAMR cache, and Context Orchestrator into a
// runnable binary, in the idiom of the teacher's cmd/agentctl: a
// sub-command dispatch on os.Args[1], each sub-command scanning its own
// --flag=value arguments.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maestro-labs/mcae/pkg/capability"
	"github.com/maestro-labs/mcae/pkg/llmadapter"
	"github.com/maestro-labs/mcae/pkg/mcaeconfig"
	"github.com/maestro-labs/mcae/pkg/mcaelog"
	"github.com/maestro-labs/mcae/pkg/mcaemetrics"
	"github.com/maestro-labs/mcae/pkg/orchestrator"
	"github.com/maestro-labs/mcae/pkg/ramr"
	"github.com/maestro-labs/mcae/pkg/store"
)

const logDomain = "cmd"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		handleDemoCommand()
	case "secrets":
		handleSecretsCommand()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: mcae <command> [flags]

Commands:
  demo      assemble a context payload for a scripted conversation turn
  secrets   manage the encrypted LanguageModel API key store`)
}

// handleDemoCommand wires a RAMR cache, a sqlite DocumentStore, and a
// LanguageModel adapter chosen by mcaeconfig into an Orchestrator, then
// runs one Assemble/RecordTurn cycle against a scripted project/session,
// printing the resulting ContextPayload. This is the thin runnable
// surface spec §9 expects a host to build on top of the core contract.
func handleDemoCommand() {
	ctx := context.Background()

	configPath := "mcae.yaml"
	if len(os.Args) > 2 {
		configPath = os.Args[2]
	}
	if err := mcaeconfig.LoadConfig(configPath); err != nil {
		fatal("load config: %v", err)
	}
	cfg := mcaeconfig.GetConfig()

	docStore, err := store.Open(cfg.DocumentDBPath)
	if err != nil {
		fatal("open document store: %v", err)
	}
	defer docStore.Close()

	recorder := mcaemetrics.NewPrometheusRecorder()

	ramrCfg := cfg.RAMRConfig()
	ramrCfg.Recorder = recorder
	cache, err := ramr.New(ramrCfg)
	if err != nil {
		fatal("open ramr: %v", err)
	}
	defer cache.Close()

	lm := languageModelFromConfig(cfg)
	if lm != nil {
		lm = llmadapter.WithRetry(lm, llmadapter.DefaultRetryConfig)
	}

	orch := orchestrator.New(cfg.OrchestratorConfig(), docStore, cache, lm, recorder)

	stopReaper := startReapTicker(ctx, cache, 5*time.Minute)
	defer stopReaper()

	project, err := docStore.GetOrCreateProject(ctx, "mcae-demo")
	if err != nil {
		fatal("get or create project: %v", err)
	}
	session, err := docStore.StartSession(ctx, project.ID, "demo-session")
	if err != nil {
		fatal("start session: %v", err)
	}

	userTurn := "What's the best way to configure RAMR's T2 capacity for a long-running session?"
	payload, err := orch.Assemble(ctx, session.ID, project.ID, userTurn, cfg.DefaultBudgetTokens, nil)
	if err != nil {
		fatal("assemble context: %v", err)
	}

	fmt.Printf("assembled context: %d sections, %d tokens, cache_hits=%d, summary_skipped=%v, artifacts_partial=%v, cache_cold=%v\n",
		len(payload.Sections), payload.TotalTokens, payload.Metadata.CacheHits,
		payload.Metadata.SummarySkipped, payload.Metadata.ArtifactsPartial, payload.Metadata.CacheCold)
	for _, section := range payload.Sections {
		fmt.Printf("  [%s] %d tokens (priority %d)\n", section.Kind, section.TokenCount, section.Priority)
	}

	assistantReply := "Start T2 at the default 10,000-entry cap and raise it only if ReapExpired shows low eviction pressure."
	if err := orch.RecordTurn(ctx, session.ID, userTurn, assistantReply); err != nil {
		fatal("record turn: %v", err)
	}

	reaped, err := cache.ReapExpired(ctx)
	if err != nil {
		mcaelog.Warnf(ctx, logDomain, "reap expired failed: %v", err)
	} else if reaped > 0 {
		fmt.Printf("reaped %d expired cache entries\n", reaped)
	}

	if err := docStore.EndSession(ctx, session.ID, "", "", payload.TotalTokens); err != nil {
		fatal("end session: %v", err)
	}
}

// languageModelFromConfig builds the configured provider adapter,
// resolving its API key via mcaeconfig's secrets store. Returns nil
// (summary generation degrades gracefully) if no key is available.
func languageModelFromConfig(cfg mcaeconfig.Config) capability.LanguageModel {
	lmCfg := cfg.LanguageModel
	switch lmCfg.Provider {
	case "anthropic":
		key, err := mcaeconfig.GetSecret("ANTHROPIC_API_KEY")
		if err != nil {
			mcaelog.Warnf(context.Background(), logDomain, "no anthropic api key configured, summaries disabled: %v", err)
			return nil
		}
		return llmadapter.NewAnthropicModel(key, lmCfg.Model)
	case "openai":
		key, err := mcaeconfig.GetSecret("OPENAI_API_KEY")
		if err != nil {
			mcaelog.Warnf(context.Background(), logDomain, "no openai api key configured, summaries disabled: %v", err)
			return nil
		}
		return llmadapter.NewOpenAIModel(key, lmCfg.Model)
	case "genai":
		key, err := mcaeconfig.GetSecret("GEMINI_API_KEY")
		if err != nil {
			mcaelog.Warnf(context.Background(), logDomain, "no gemini api key configured, summaries disabled: %v", err)
			return nil
		}
		return llmadapter.NewGenaiModel(key, lmCfg.Model)
	case "ollama":
		baseURL := lmCfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return llmadapter.NewOllamaModel(baseURL, lmCfg.Model)
	default:
		return nil
	}
}

// handleSecretsCommand drives the interactive passphrase prompts so an
// API key never has to be typed on the command line in cleartext.
func handleSecretsCommand() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: mcae secrets <init|show> [--dir=.mcae]")
		os.Exit(1)
	}

	dir := ".mcae"
	for _, arg := range os.Args[3:] {
		if v, ok := flagValue(arg, "--dir"); ok {
			dir = v
		}
	}

	switch os.Args[2] {
	case "init":
		var name, value string
		fmt.Print("Secret name (e.g. ANTHROPIC_API_KEY): ")
		fmt.Scanln(&name)
		fmt.Print("Secret value: ")
		fmt.Scanln(&value)

		secrets := map[string]string{name: value}
		if err := mcaeconfig.PromptAndEncrypt(dir, int(os.Stdin.Fd()), secrets); err != nil {
			fatal("encrypt secrets: %v", err)
		}
		fmt.Println("secrets saved to", filepath.Join(dir, "secrets.json.enc"))
	case "show":
		if err := mcaeconfig.PromptAndDecrypt(dir, int(os.Stdin.Fd())); err != nil {
			fatal("decrypt secrets: %v", err)
		}
		fmt.Println("secrets decrypted and loaded into memory for this process")
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown secrets sub-command %q\n", os.Args[2])
		os.Exit(1)
	}
}

func flagValue(arg, name string) (string, bool) {
	prefix := name + "="
	if len(arg) > len(prefix) && arg[:len(prefix)] == prefix {
		return arg[len(prefix):], true
	}
	return "", false
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// startReapTicker wires an optional background sweep of RAMR.ReapExpired
// on a fixed schedule. RAMR.Get skips expired entries but never deletes
// them, so without a sweep they stay in T1/T2 until evicted or
// overwritten — spec §4.3 allows either strategy, and a long-running
// host benefits from bounding T1/T2 size even during idle periods. The
// returned stop func blocks until the ticker goroutine has exited.
func startReapTicker(ctx context.Context, cache capability.Cache, interval time.Duration) (stop func()) {
	done := make(chan struct{})
	stopCh := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := cache.ReapExpired(ctx); err != nil {
					mcaelog.Warnf(ctx, logDomain, "scheduled reap failed: %v", err)
				} else if n > 0 {
					mcaelog.Infof(ctx, logDomain, "scheduled reap removed %d expired entries", n)
				}
			case <-stopCh:
				return
			}
		}
	}()

	return func() {
		close(stopCh)
		<-done
	}
}
