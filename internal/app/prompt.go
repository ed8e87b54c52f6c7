package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"ffctl/internal/ff"
)

// ErrNoInput is returned when a prompt receives an empty answer.
var ErrNoInput = errors.New("no input provided")

// Prompter asks the user for values the command line left out.
type Prompter struct {
	in       *bufio.Reader
	out      io.Writer
	fd       int
	terminal bool
}

// NewTerminalPrompter reads from stdin and writes prompts to stderr. Secrets
// are read without echo when stdin is a terminal.
func NewTerminalPrompter() *Prompter {
	fd := int(os.Stdin.Fd())
	return &Prompter{
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stderr,
		fd:       fd,
		terminal: term.IsTerminal(fd),
	}
}

// NewPrompter reads answers from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: -1}
}

// ReadLine prints label and returns the trimmed answer.
func (p *Prompter) ReadLine(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%s %w", strings.TrimSpace(label), ErrNoInput)
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return "", fmt.Errorf("%s %w", strings.TrimSpace(label), ErrNoInput)
	}
	return answer, nil
}

// ReadSecret is ReadLine without echo on a terminal.
func (p *Prompter) ReadSecret(label string) (string, error) {
	if !p.terminal {
		return p.ReadLine(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	answer := strings.TrimSpace(string(b))
	if answer == "" {
		return "", fmt.Errorf("%s %w", strings.TrimSpace(label), ErrNoInput)
	}
	return answer, nil
}

// promptCredentials resolves the client id and secret from flags, then the
// config file, then the prompter. Prompting happens only when a token
// exchange is actually needed.
type promptCredentials struct {
	clientID string
	secret   string
	prompter *Prompter
}

var _ ff.CredentialsProvider = (*promptCredentials)(nil)

func newPromptCredentials(flagID, flagSecret, cfgID, cfgSecret string, prompter *Prompter) *promptCredentials {
	c := &promptCredentials{clientID: flagID, secret: flagSecret, prompter: prompter}
	if c.clientID == "" {
		c.clientID = cfgID
	}
	if c.secret == "" {
		c.secret = cfgSecret
	}
	return c
}

func (c *promptCredentials) Credentials() (string, string, error) {
	if c.clientID == "" || c.secret == "" {
		if c.prompter == nil {
			return "", "", fmt.Errorf("client id and secret are required: pass --client-id/--secret or set them in the config")
		}
	}
	if c.clientID == "" {
		id, err := c.prompter.ReadLine("Client ID: ")
		if err != nil {
			return "", "", err
		}
		c.clientID = id
	}
	if c.secret == "" {
		secret, err := c.prompter.ReadSecret("Secret: ")
		if err != nil {
			return "", "", err
		}
		c.secret = secret
	}
	return c.clientID, c.secret, nil
}
