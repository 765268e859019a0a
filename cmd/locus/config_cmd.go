package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/locuscode/locus/internal/config"
)

// ConfigCmd groups the persisted-configuration subcommands: provider API
// keys and the LocusGraph connection. Both write into the same
// config.Store (~/.locus/locus.db) and resync ~/.locus/env, mirroring
// original_source's locus_cli/src/commands/config.rs.
type ConfigCmd struct {
	Api   ApiCmd   `cmd:"" help:"Configure an LLM provider's API key."`
	Graph GraphCmd `cmd:"" help:"Configure the LocusGraph memory connection."`
}

// providerOption is one entry in the interactive provider menu.
type providerOption struct {
	id     string
	envVar string
	about  string
}

var providerOptions = []providerOption{
	{"anthropic", "ANTHROPIC_API_KEY", "Claude models (opus, sonnet, haiku)"},
	{"openai", "OPENAI_API_KEY", "GPT models"},
	{"zai", "ZAI_API_KEY", "GLM models (glm-5, glm-4-plus, etc.)"},
}

// ApiCmd saves one provider's API key to the persisted store.
type ApiCmd struct {
	Provider string `arg:"" optional:"" help:"Provider to configure (anthropic, openai, zai)."`
}

func (c *ApiCmd) Run(cli *CLI, env *environment) error {
	opt, err := resolveProviderOption(c.Provider)
	if err != nil {
		return err
	}

	fmt.Printf("Configure %s\n  %s\n\n", opt.id, opt.about)
	if current := os.Getenv(opt.envVar); current != "" {
		fmt.Printf("  Current: %s\n\n", config.MaskAPIKey(current))
	}

	key, err := promptLine(fmt.Sprintf("Enter API key for %s: ", opt.id))
	if err != nil {
		return err
	}
	if key == "" {
		fmt.Println("No key entered, cancelled.")
		return nil
	}

	store, err := openConfigStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Set(opt.envVar, key); err != nil {
		return err
	}

	fmt.Printf("Saved %s to %s\n", opt.envVar, store.EnvFilePath())
	fmt.Println("Run 'source ~/.locus/env' or restart your shell to apply.")
	return nil
}

func resolveProviderOption(name string) (providerOption, error) {
	if name == "" {
		return selectProviderInteractively()
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, opt := range providerOptions {
		if opt.id == lower {
			return opt, nil
		}
	}
	return providerOption{}, fmt.Errorf("locus: unknown provider %q (available: anthropic, openai, zai)", name)
}

func selectProviderInteractively() (providerOption, error) {
	fmt.Println("Select a provider to configure:")
	fmt.Println()
	for i, opt := range providerOptions {
		status := "(not set)"
		if os.Getenv(opt.envVar) != "" {
			status = "(configured)"
		}
		fmt.Printf("  %d) %s %s - %s\n", i+1, opt.id, status, opt.about)
	}
	fmt.Println()

	choice, err := promptLine(fmt.Sprintf("Enter choice [1-%d]: ", len(providerOptions)))
	if err != nil {
		return providerOption{}, err
	}
	var idx int
	if _, err := fmt.Sscanf(choice, "%d", &idx); err != nil || idx < 1 || idx > len(providerOptions) {
		return providerOption{}, fmt.Errorf("locus: invalid choice %q", choice)
	}
	return providerOptions[idx-1], nil
}

// GraphCmd saves the LocusGraph connection settings (server URL, graph
// ID, agent secret) to the persisted store. The runtime itself only
// ships the in-memory and SQLite reference graph-store adapters (no
// remote LocusGraph client exists in this build); these settings are
// persisted for forward compatibility with a future remote adapter,
// matching original_source's own config surface.
type GraphCmd struct {
	URL     string `help:"LocusGraph server URL." placeholder:"http://127.0.0.1:50051"`
	GraphID string `name:"graph-id" help:"LocusGraph graph ID." placeholder:"locus-agent"`
}

func (c *GraphCmd) Run(cli *CLI, env *environment) error {
	fmt.Println("Configure LocusGraph")
	fmt.Println("  Memory and context storage for the locus agent")
	fmt.Println()

	if secret := os.Getenv("LOCUSGRAPH_AGENT_SECRET"); secret != "" {
		fmt.Printf("  Current secret: %s\n", config.MaskAPIKey(secret))
	}
	if url := os.Getenv("LOCUSGRAPH_SERVER_URL"); url != "" {
		fmt.Printf("  Current URL: %s\n", url)
	}
	if graphID := os.Getenv("LOCUSGRAPH_GRAPH_ID"); graphID != "" {
		fmt.Printf("  Current graph ID: %s\n", graphID)
	}
	fmt.Println()

	secret, err := promptLine("Enter LocusGraph agent secret: ")
	if err != nil {
		return err
	}
	if secret == "" {
		fmt.Println("No secret entered, cancelled.")
		return nil
	}

	url := c.URL
	if url == "" {
		url, err = promptLine("Enter server URL [http://127.0.0.1:50051]: ")
		if err != nil {
			return err
		}
		if url == "" {
			url = "http://127.0.0.1:50051"
		}
	}

	graphID := c.GraphID
	if graphID == "" {
		graphID, err = promptLine("Enter graph ID [locus-agent]: ")
		if err != nil {
			return err
		}
		if graphID == "" {
			graphID = "locus-agent"
		}
	}

	store, err := openConfigStore()
	if err != nil {
		return err
	}
	defer store.Close()

	for key, value := range map[string]string{
		"LOCUSGRAPH_AGENT_SECRET": secret,
		"LOCUSGRAPH_SERVER_URL":   url,
		"LOCUSGRAPH_GRAPH_ID":     graphID,
	} {
		if err := store.Set(key, value); err != nil {
			return err
		}
	}

	fmt.Printf("Saved LocusGraph config to %s\n", store.EnvFilePath())
	fmt.Println("Run 'source ~/.locus/env' or restart your shell to apply.")
	return nil
}

func openConfigStore() (*config.Store, error) {
	dir, err := config.DefaultStoreDir()
	if err != nil {
		return nil, err
	}
	return config.OpenStore(dir)
}

// promptLine reads one line from stdin, trimmed. Unlike original_source's
// raw-mode, asterisk-masking key prompt (no equivalent terminal-raw-mode
// dependency is in go.mod here), this echoes input plainly — acceptable
// for a local CLI reading from a controlling terminal or a piped secret.
func promptLine(label string) (string, error) {
	fmt.Print(label)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", scanner.Err()
	}
	return strings.TrimSpace(scanner.Text()), nil
}
