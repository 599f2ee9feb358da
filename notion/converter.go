package notion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"revise/llm"
)

// BlockConverter turns markdown into API blocks.
type BlockConverter interface {
	Convert(ctx context.Context, markdown string) ([]Block, error)
}

// SubprocessConverter runs an external markdown-to-blocks tool as
// "<Runtime> <CLIPath> --stdin", feeding markdown on stdin and reading a JSON
// array of blocks from stdout.
type SubprocessConverter struct {
	Runtime string
	CLIPath string
	Timeout time.Duration
}

// NewSubprocessConverter checks that the runtime and tool exist.
func NewSubprocessConverter(runtime, cliPath string, timeout time.Duration) (*SubprocessConverter, error) {
	if runtime == "" {
		runtime = "node"
	}
	bin, err := exec.LookPath(runtime)
	if err != nil {
		return nil, fmt.Errorf("converter runtime %q not found: %w", runtime, err)
	}
	if _, err := os.Stat(cliPath); err != nil {
		return nil, fmt.Errorf("converter tool not found at %s: %w", cliPath, err)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &SubprocessConverter{Runtime: bin, CLIPath: cliPath, Timeout: timeout}, nil
}

func (c *SubprocessConverter) Convert(ctx context.Context, markdown string) ([]Block, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Runtime, c.CLIPath, "--stdin")
	cmd.Stdin = strings.NewReader(markdown)
	cmd.Env = os.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, llm.NewConversionError(fmt.Errorf("timed out after %s", c.Timeout), stderr.String(), "")
		}
		return nil, llm.NewConversionError(err, stderr.String(), "")
	}
	return DecodeBlocks(stdout.Bytes(), stderr.String())
}

// DecodeBlocks parses converter output, which must be a JSON array.
func DecodeBlocks(out []byte, stderr string) ([]Block, error) {
	var raw any
	if err := sonic.Unmarshal(out, &raw); err != nil {
		return nil, llm.NewConversionError(fmt.Errorf("decode output: %w", err), stderr, string(out))
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, llm.NewConversionError(errors.New("output is not a list"), stderr, string(out))
	}
	blocks := make([]Block, 0, len(items))
	for i, it := range items {
		b, ok := it.(map[string]any)
		if !ok {
			return nil, llm.NewConversionError(fmt.Errorf("item %d is not an object", i), stderr, "")
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
