package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestConsolePrompter(t *testing.T) {
	var out bytes.Buffer
	p := newConsolePrompter(strings.NewReader(" 12345 \nhunter2"), &out, -1)

	code, err := p.Code(context.Background())
	if err != nil || code != "12345" {
		t.Fatalf("Code() = %q, %v", code, err)
	}
	pw, err := p.Password(context.Background())
	if err != nil || pw != "hunter2" {
		t.Fatalf("Password() = %q, %v", pw, err)
	}
	if !strings.Contains(out.String(), "code") || !strings.Contains(out.String(), "password") {
		t.Errorf("prompts missing from output: %q", out.String())
	}
}

func TestConsolePrompter_EmptyCode(t *testing.T) {
	p := newConsolePrompter(strings.NewReader("\n"), &bytes.Buffer{}, -1)
	if _, err := p.Code(context.Background()); err == nil {
		t.Error("expected an error for an empty code")
	}
}

func TestConsolePrompter_EOF(t *testing.T) {
	p := newConsolePrompter(strings.NewReader(""), &bytes.Buffer{}, -1)
	if _, err := p.Code(context.Background()); err == nil {
		t.Error("expected an error at end of input")
	}
}

func TestConsolePrompter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newConsolePrompter(strings.NewReader("1\n"), &bytes.Buffer{}, -1)
	if _, err := p.Code(ctx); err == nil {
		t.Error("expected the context error")
	}
}
