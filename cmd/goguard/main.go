package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const usage = `usage: goguard <command> [flags]

commands:
  secret             generate JWT_SECRET in .env
  cert               generate an RSA or EC key pair and point .env at it
  incident show      print the incident clock
  incident declare   revoke every token issued until now
  tokens list        list a subject's ledger entries
  revoke             revoke a subject's tokens
`

// cli carries the process environment so commands can be tested without touching os.
type cli struct {
	dir    string
	args   []string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{
		dir:    ".",
		args:   os.Args[1:],
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	}
	os.Exit(c.run(ctx))
}

func (c *cli) run(ctx context.Context) int {
	if len(c.args) == 0 {
		fmt.Fprint(c.stderr, usage)
		return 2
	}

	var err error
	switch cmd, rest := c.args[0], c.args[1:]; cmd {
	case "secret":
		err = c.secret(rest)
	case "cert":
		err = c.cert(rest)
	case "incident":
		err = c.incident(ctx, rest)
	case "tokens":
		err = c.tokens(ctx, rest)
	case "revoke":
		err = c.revoke(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(c.stdout, usage)
		return 0
	default:
		fmt.Fprintf(c.stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	if err != nil {
		fmt.Fprintln(c.stderr, "error:", err)
		return 1
	}
	return 0
}
