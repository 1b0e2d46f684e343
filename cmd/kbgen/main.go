// Command kbgen generates knowledge-base JSON documents from folders of
// scraped web pages. Each subfolder of the root directory holds one
// page's DOM dump, image mapping, downloaded images, and optionally a
// full-page screenshot; kbgen processes them sequentially and writes
// its artifacts back into each folder.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/mwielgus/pagekb/gemini"
	"google.golang.org/genai"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct{}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Root string `arg:"" type:"existingdir" help:"Directory containing scraped page folders"`

	Segment        string        `default:"General" help:"Data segment for folders without a Segment__ prefix"`
	Model          string        `help:"Gemini model to use (default: gemini-2.5-flash)"`
	BatchSize      int           `default:"4" help:"Sections extracted per LLM call"`
	ImageBatchSize int           `default:"10" help:"Images classified per vision call"`
	APIDelay       time.Duration `default:"2s" help:"Minimum delay between API calls"`
	SkipImages     bool          `help:"Skip image classification entirely"`
	NoScreenshot   bool          `help:"Do not attach full-page screenshots to grouping calls"`
	Reprocess      bool          `help:"Process folders even when a previous run succeeded"`
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("kbgen"),
		kong.Description("Generate knowledge-base JSON from scraped page folders"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no root directory specified. Run 'kbgen --help' for usage")
	}
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
		return fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
		return fmt.Errorf("failed to connect to Gemini API: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(stderr, nil))

	cfg := gemini.DefaultConfig()
	if cli.Model != "" {
		cfg.Model = cli.Model
	}
	cfg.APIDelay = cli.APIDelay

	b := &batch{
		cli:    cli,
		client: gemini.NewClient(client, cfg, logger),
		logger: logger,
		stdout: stdout,
	}
	return b.run(ctx)
}
