package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/internal/backend"
	"github.com/MrEthical07/goGuard/internal/envconfig"
	"github.com/MrEthical07/goGuard/internal/logging"
)

// session is an engine over the configured backend, closed together.
type session struct {
	*goGuard.Engine
	store *backend.Opened
}

func (s *session) Close() {
	s.Engine.Close()
	_ = s.store.Close()
}

func (c *cli) flags(name string) (*pflag.FlagSet, *envconfig.Settings, error) {
	s := envconfig.NewSettings()
	if err := s.LoadDotEnv(c.dir); err != nil {
		return nil, nil, err
	}
	if err := s.LoadEnv(c.getenv); err != nil {
		return nil, nil, err
	}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	s.RegisterFlags(fs)
	return fs, s, nil
}

func (c *cli) open(ctx context.Context, s *envconfig.Settings) (*session, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	log, err := logging.New(c.stderr, s.LogLevel, s.LogFormat)
	if err != nil {
		return nil, err
	}

	store, err := backend.Open(ctx, s, log)
	if err != nil {
		return nil, err
	}
	engine, err := goGuard.New().
		WithConfig(s.EngineConfig()).
		WithBackend(store).
		WithLogger(log).
		Build()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &session{Engine: engine, store: store}, nil
}

func (c *cli) incident(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("incident: expected show or declare")
	}
	action := args[0]

	fs, settings, err := c.flags("incident")
	if err != nil {
		return err
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	sess, err := c.open(ctx, settings)
	if err != nil {
		return err
	}
	defer sess.Close()

	var at time.Time
	switch action {
	case "show":
		at, err = sess.IncidentTime(ctx)
	case "declare":
		at, err = sess.DeclareIncident(ctx)
	default:
		return fmt.Errorf("incident: unknown action %q", action)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "latest incident: %d (%s)\n", at.Unix(), at.UTC().Format(time.RFC3339))
	return nil
}

func (c *cli) tokens(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "list" {
		return errors.New("tokens: expected list")
	}

	fs, settings, err := c.flags("tokens")
	if err != nil {
		return err
	}
	subject := fs.String("subject", "", "subject id")
	typ := fs.String("type", "", "access or refresh; empty lists both")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("tokens list: --subject is required")
	}

	var types []goGuard.TokenType
	if *typ != "" {
		t := goGuard.TokenType(*typ)
		if !t.Valid() {
			return fmt.Errorf("%w: token type %q", goGuard.ErrInvalidAction, *typ)
		}
		types = append(types, t)
	}

	sess, err := c.open(ctx, settings)
	if err != nil {
		return err
	}
	defer sess.Close()

	entries, err := sess.ActiveTokens(ctx, *subject, types...)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tISSUED\tUSER AGENT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Type, time.Unix(e.IssuedAt, 0).UTC().Format(time.RFC3339), e.UserAgent)
	}
	return w.Flush()
}

func (c *cli) revoke(ctx context.Context, args []string) error {
	fs, settings, err := c.flags("revoke")
	if err != nil {
		return err
	}
	subject := fs.String("subject", "", "subject id")
	device := fs.String("device", "", "user agent the tokens were issued to")
	typ := fs.String("type", "both", "access, refresh or both")
	all := fs.Bool("all", false, "revoke every device")
	others := fs.Bool("others", false, "revoke every device except --device")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *subject == "":
		return errors.New("revoke: --subject is required")
	case *all && *others:
		return errors.New("revoke: --all and --others are exclusive")
	case !*all && *device == "":
		return errors.New("revoke: --device is required unless --all is set")
	}

	sess, err := c.open(ctx, settings)
	if err != nil {
		return err
	}
	defer sess.Close()

	var n int
	switch {
	case *all:
		n, err = sess.RevokeAll(ctx, *subject)
	case *others:
		n, err = sess.RevokeAllOtherDevices(ctx, *subject, *device)
	case *typ == "both":
		err = sess.RevokeBoth(ctx, *subject, *device)
		n = 2
	default:
		t := goGuard.TokenType(*typ)
		if !t.Valid() {
			return fmt.Errorf("%w: token type %q", goGuard.ErrInvalidAction, *typ)
		}
		err = sess.Revoke(ctx, *subject, t, *device)
		n = 1
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "revoked %d token(s) of %s\n", n, *subject)
	return nil
}
