package remap

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/asmremap/internal/utils"
	"github.com/pkg/errors"
)

// Disassembler turns a compiled class into ASMifier dump source
type Disassembler interface {
	Disassemble(ctx context.Context, path string) (string, error)
}

// Command runs an external disassembler with the class path appended to its
// arguments and captures its stdout
type Command struct {
	name string
	args []string
}

// NewCommand parses a command line such as
// "java -cp asm-util.jar org.objectweb.asm.util.ASMifier"
func NewCommand(cmdline string) (*Command, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, errors.New("empty disassembler command")
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return nil, errors.Wrapf(err, "disassembler %s not found", fields[0])
	}
	return &Command{name: fields[0], args: fields[1:]}, nil
}

// Disassemble runs the command on path
func (c *Command) Disassemble(ctx context.Context, path string) (string, error) {
	args := append(append([]string{}, c.args...), path)

	cmd := exec.CommandContext(ctx, c.name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	utils.Indent(log.Debug, 2)(cmd.String())

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", c.name, err, msg)
		}
		return "", fmt.Errorf("%s: %w", c.name, err)
	}

	return stdout.String(), nil
}
