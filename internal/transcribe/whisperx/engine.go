package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kiranshivaraju/vslpipeline/internal/config"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// CommandRunner executes the whisperx CLI.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Engine implements models.TranscriptionEngine by shelling out to whisperx and
// reading its JSON output.
type Engine struct {
	cfg config.WhisperXConfig
	run CommandRunner
}

func NewEngine(cfg config.WhisperXConfig, run CommandRunner) *Engine {
	if len(cfg.Command) == 0 {
		cfg.Command = []string{"uvx", "whisperx"}
	}
	if cfg.Model == "" {
		cfg.Model = "large-v3"
	}
	if cfg.Device == "" {
		cfg.Device = "cpu"
	}
	if run == nil {
		run = execRunner
	}
	return &Engine{cfg: cfg, run: run}
}

func (e *Engine) Name() string { return "whisperx-" + e.cfg.Model }

func (e *Engine) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	outputDir := e.cfg.OutputDir
	if outputDir == "" {
		outputDir = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("whisperx: ensure output dir: %w", err)
	}

	name, args := e.command(audioPath, outputDir, language)
	if err := e.run(ctx, name, args...); err != nil {
		return "", fmt.Errorf("whisperx: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, base+".json")
	defer os.Remove(jsonPath)

	text, err := loadTranscriptText(jsonPath)
	if err != nil {
		return "", fmt.Errorf("whisperx: %w", err)
	}
	return text, nil
}

func (e *Engine) command(audioPath, outputDir, language string) (string, []string) {
	args := append([]string{}, e.cfg.Command[1:]...)
	args = append(args,
		audioPath,
		"--model", e.cfg.Model,
		"--device", e.cfg.Device,
		"--output_dir", outputDir,
		"--output_format", "json",
	)
	if e.cfg.Device == "cpu" {
		args = append(args, "--compute_type", "int8")
	}
	if language = strings.TrimSpace(language); language != "" {
		args = append(args, "--language", language)
	}
	return e.cfg.Command[0], args
}

type segment struct {
	Text string `json:"text"`
}

type payload struct {
	Segments []segment `json:"segments"`
}

// loadTranscriptText concatenates segment text from a whisperx JSON file.
func loadTranscriptText(jsonPath string) (string, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", fmt.Errorf("read output: %w", err)
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("parse output: %w", err)
	}
	parts := make([]string, 0, len(p.Segments))
	for _, seg := range p.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	// Torch 2.6 changed the torch.load default and breaks bundled whisperx checkpoints.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		out := strings.TrimSpace(string(output))
		if len(out) > 512 {
			out = out[len(out)-512:]
		}
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

var _ models.TranscriptionEngine = (*Engine)(nil)
