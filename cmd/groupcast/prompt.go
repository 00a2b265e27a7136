package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// consolePrompter asks for login codes on the terminal. Passwords are read
// without echo when the input is a terminal.
type consolePrompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newConsolePrompter(in io.Reader, out io.Writer, fd int) *consolePrompter {
	return &consolePrompter{in: bufio.NewReader(in), out: out, fd: fd}
}

func (p *consolePrompter) Code(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, "Enter the code you received: ")
	code, err := p.readLine()
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", errors.New("no code entered")
	}
	return code, nil
}

func (p *consolePrompter) Password(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, "Two-step verification password: ")
	if term.IsTerminal(p.fd) {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return p.readLine()
}

func (p *consolePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
