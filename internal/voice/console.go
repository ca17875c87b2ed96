package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Console is a Voice over lines of text, for headless runs and scripting.
type Console struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewScanner(in), out: out}
}

func (c *Console) Speak(_ context.Context, text string) error {
	_, err := fmt.Fprintf(c.out, "Assistant: %s\n", text)
	return err
}

// Capture reads one answer.
func (c *Console) Capture(ctx context.Context) (string, error) {
	return c.Listen(ctx)
}

// Listen prompts and reads the next line. It returns io.EOF when input ends.
func (c *Console) Listen(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(c.out, "You: ")
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}
