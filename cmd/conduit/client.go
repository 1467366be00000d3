package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dukex/conduit/pkg/client"
	"github.com/dukex/conduit/pkg/log"
	"github.com/dukex/conduit/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

var errUsage = errors.New("usage")

// parseHeaders reads "Name: value" pairs.
func parseHeaders(values []string) (http.Header, error) {
	headers := make(http.Header, len(values))

	for _, value := range values {
		name, v, found := strings.Cut(value, ":")
		name = strings.TrimSpace(name)

		if !found || name == "" {
			return nil, fmt.Errorf("%w: header %q is not 'Name: value'", errUsage, value)
		}

		headers.Add(name, strings.TrimSpace(v))
	}

	return headers, nil
}

func newClient(cmd *cli.Command) (*client.Client, error) {
	headers, err := parseHeaders(cmd.StringSlice("header"))
	if err != nil {
		return nil, err
	}

	if token := cmd.String("token"); token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}

	return client.New(
		strings.TrimSuffix(cmd.String("api-url"), "/"),
		client.WithHeaders(headers),
		client.WithLogger(log.WithModule("client")),
		client.WithTracer(otelhelper.Tracer("conduit")),
	), nil
}

// clientAction configures logging and tracing, then runs fn with a client.
func clientAction(fn func(ctx context.Context, cmd *cli.Command, c *client.Client) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		log.Setup(cmd.String("log-level"))

		if cmd.Bool("otel") {
			shutdown, err := otelhelper.Setup(ctx, "conduit")
			if err != nil {
				return err
			}

			defer func() { _ = shutdown(context.Background()) }()
		}

		c, err := newClient(cmd)
		if err != nil {
			return err
		}

		return fn(ctx, cmd, c)
	}
}

// parseProps reads "key=value" pairs into configured properties.
func parseProps(values []string) (map[string]any, error) {
	props := make(map[string]any, len(values))

	for _, value := range values {
		key, v, found := strings.Cut(value, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: property %q is not key=value", errUsage, value)
		}

		props[key] = v
	}

	return props, nil
}

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.NArg() < n {
		return fmt.Errorf("%w: %s %s", errUsage, cmd.Name, cmd.ArgsUsage)
	}

	return nil
}
