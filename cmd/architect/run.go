package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cexll/architect-go/pkg/agent"
	"github.com/cexll/architect-go/pkg/config"
	"github.com/cexll/architect-go/pkg/imageset"
	modelpkg "github.com/cexll/architect-go/pkg/model"
	"github.com/cexll/architect-go/pkg/model/anthropic"
	"github.com/cexll/architect-go/pkg/model/openai"
	"github.com/cexll/architect-go/pkg/prompt"
	"github.com/cexll/architect-go/pkg/security"
	"github.com/cexll/architect-go/pkg/session"
	"github.com/cexll/architect-go/pkg/telemetry"
	"github.com/cexll/architect-go/pkg/tool"
	toolbuiltin "github.com/cexll/architect-go/pkg/tool/builtin"
)

func runCommand(ctx context.Context, argv []string, streams ioStreams) error {
	set := flag.NewFlagSet("run", flag.ContinueOnError)
	set.SetOutput(streams.err)
	var (
		imagesFlag     = set.String("images", "", "Folder with annotated UI screenshots. Overrides image_dir in config.")
		workspaceFlag  = set.String("workspace", "", "Project root the generated files are written under.")
		providerFlag   = set.String("provider", "", "Model provider: anthropic or openai.")
		modelFlag      = set.String("model", "", "Override the model declared in the config file.")
		iterationsFlag = set.Int("max-iterations", 0, "Cap on model round-trips per run.")
		sessionFlag    = set.String("session", "", "Reuse an existing session ID to resume context.")
		streamFlag     = set.Bool("stream", false, "Stream progress events instead of waiting for completion.")
		configDirFlag  = set.String("config-dir", "", "Path to the .architect directory.")
	)
	set.Usage = func() {
		fmt.Fprintln(streams.err, "Usage: architect run [flags]")
		fmt.Fprintln(streams.err, "\nFlags:")
		set.PrintDefaults()
		fmt.Fprintln(streams.err, "\nExamples:")
		fmt.Fprintln(streams.err, "  architect run --images ./design_shots --workspace ./app")
		fmt.Fprintln(streams.err, "  architect run --provider openai --model gpt-4o --stream")
	}
	if err := set.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	root := strings.TrimSpace(*workspaceFlag)
	if root == "" {
		root = "."
	}
	var loaderOpts []config.LoaderOption
	if dir := strings.TrimSpace(*configDirFlag); dir != "" {
		loaderOpts = append(loaderOpts, config.WithConfigDir(dir))
	}
	loader, err := config.NewLoader(root, loaderOpts...)
	if err != nil {
		return err
	}
	cfg, err := loader.LoadWith(func(s *config.Settings) {
		if *imagesFlag != "" {
			s.ImageDir = *imagesFlag
		}
		if *workspaceFlag != "" {
			s.Workspace = *workspaceFlag
		}
		if *providerFlag != "" {
			s.Provider = *providerFlag
		}
		if *modelFlag != "" {
			s.Model = *modelFlag
		}
		if *iterationsFlag > 0 {
			s.MaxIterations = *iterationsFlag
		}
	})
	if err != nil {
		return err
	}

	shutdown, err := setupTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	blocks, err := imageset.Load(cfg.ImageDir)
	if err != nil {
		return fmt.Errorf("load images: %w", err)
	}

	workspace, err := security.NewWorkspace(cfg.Workspace)
	if err != nil {
		return err
	}
	registry, err := buildRegistry(workspace)
	if err != nil {
		return err
	}

	sessionID := strings.TrimSpace(*sessionFlag)
	resuming := sessionID != ""
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	sess, err := openSession(sessionID, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	var history []modelpkg.Message
	if resuming {
		stored, err := sess.List(session.Filter{})
		if err != nil {
			return fmt.Errorf("load session history: %w", err)
		}
		history = historyMessages(stored)
	}

	controller, err := agent.New(agent.Config{
		Model:         buildModel(cfg),
		Tools:         registry,
		Session:       sess,
		System:        prompt.System,
		MaxIterations: cfg.MaxIterations,
		Timeout:       cfg.Timeout,
	})
	if err != nil {
		return err
	}

	initial := append(history, modelpkg.Message{
		Role:    "user",
		Content: prompt.Task,
		Blocks:  blocks,
	})

	if *streamFlag {
		return streamRun(ctx, controller, initial, cfg.Model, sessionID, streams.out)
	}
	result, err := controller.Run(ctx, initial)
	if err != nil {
		if result != nil {
			writeMarkdownResult(streams.out, result, resultMeta{Model: cfg.Model, Session: sessionID})
		}
		return fmt.Errorf("architect run: %w", err)
	}
	writeMarkdownResult(streams.out, result, resultMeta{Model: cfg.Model, Session: sessionID})
	return nil
}

func buildModel(cfg *config.Settings) modelpkg.Model {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewSDKModelWithBaseURL(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens)
	default:
		return anthropic.NewSDKModelWithBaseURL(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens)
	}
}

func buildRegistry(ws *security.Workspace) (*tool.Registry, error) {
	registry := tool.NewRegistry()
	tools := []tool.Tool{
		toolbuiltin.NewWriteFileTool(ws),
		toolbuiltin.NewReadFileTool(ws),
		toolbuiltin.NewListFilesTool(ws),
		toolbuiltin.NewShellTool(ws),
		toolbuiltin.NewTestsTool(ws),
		toolbuiltin.NewEmulatorTool(ws),
	}
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("register tool %s: %w", t.Name(), err)
		}
	}
	return registry, nil
}

// historyMessages converts a stored transcript back into model messages so a
// resumed run hands the model its prior context before the new task turn.
func historyMessages(stored []session.Message) []modelpkg.Message {
	if len(stored) == 0 {
		return nil
	}
	out := make([]modelpkg.Message, 0, len(stored))
	for _, msg := range stored {
		converted := modelpkg.Message{Role: msg.Role, Content: msg.Content}
		for _, call := range msg.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, modelpkg.ToolCall{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
			})
		}
		out = append(out, converted)
	}
	return out
}

func openSession(id string, cfg *config.Settings) (session.Session, error) {
	if cfg.SessionDir != "" {
		return session.NewFileSession(id, cfg.SessionDir)
	}
	return session.NewMemorySession(id)
}

func setupTelemetry(ctx context.Context, cfg *config.Settings) (func(), error) {
	if cfg.OTLPEndpoint == "" {
		return func() {}, nil
	}
	manager, err := telemetry.NewManager(telemetry.Config{
		ServiceName:  "architect",
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, err
	}
	telemetry.SetDefault(manager)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Shutdown(shutdownCtx)
	}, nil
}

func streamRun(ctx context.Context, controller *agent.Controller, initial []modelpkg.Message, model, sessionID string, out io.Writer) error {
	events, err := controller.RunStream(ctx, initial)
	if err != nil {
		return fmt.Errorf("architect run stream: %w", err)
	}
	if out == nil {
		return nil
	}
	fmt.Fprintln(out, "# architect run (stream)")
	fmt.Fprintf(out, "- Model: `%s`\n", labelOrNA(model))
	fmt.Fprintf(out, "- Session: `%s`\n", sessionID)
	fmt.Fprintln(out, "\n```json")
	encoder := json.NewEncoder(out)
	encoder.SetEscapeHTML(false)
	for evt := range events {
		if err := encoder.Encode(evt); err != nil {
			return fmt.Errorf("stream encode: %w", err)
		}
	}
	fmt.Fprintln(out, "```")
	return nil
}

type resultMeta struct {
	Model   string
	Session string
}

func writeMarkdownResult(out io.Writer, res *agent.RunResult, meta resultMeta) {
	if out == nil || res == nil {
		return
	}
	fmt.Fprintln(out, "# architect run")
	fmt.Fprintf(out, "- Model: `%s`\n", labelOrNA(meta.Model))
	if meta.Session != "" {
		fmt.Fprintf(out, "- Session: `%s`\n", meta.Session)
	}
	fmt.Fprintf(out, "- Stop Reason: `%s`\n", strings.TrimSpace(res.StopReason))
	fmt.Fprintf(out, "- Iterations: %d\n", res.Iterations)
	fmt.Fprintln(out, "\n## Output")
	fmt.Fprintf(out, "```\n%s\n```\n", res.Output)
	if len(res.ToolCalls) == 0 {
		return
	}
	fmt.Fprintln(out, "\n## Tool Calls")
	for _, call := range res.ToolCalls {
		status := "ok"
		if call.Error != "" {
			status = "error"
		}
		detail := strings.TrimSpace(call.Error)
		if detail == "" && call.Duration > 0 {
			detail = fmt.Sprintf("%dms", call.Duration.Milliseconds())
		}
		fmt.Fprintf(out, "- `%s` (%s): %s\n", call.Name, status, detail)
	}
}

func labelOrNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "n/a"
	}
	return value
}
