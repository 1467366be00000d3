package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dukex/conduit/pkg/client"
	"github.com/dukex/conduit/pkg/editor"
	"github.com/dukex/conduit/pkg/models"
	cli "github.com/urfave/cli/v3"
)

// appendPosition asks for the step to go after the last one.
const appendPosition = -1

func readDocument(path string) (*models.Integration, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var doc models.Integration
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", path, err)
	}

	return &doc, nil
}

func writeDocument(path string, doc *models.Integration) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	return os.WriteFile(path, append(data, '\n'), 0600)
}

// stepPosition resolves appendPosition to the end of the flow.
func stepPosition(doc *models.Integration, flowID string, position int) int {
	if position != appendPosition {
		return position
	}

	for _, flow := range doc.Flows {
		if flow != nil && flow.ID == flowID {
			return len(flow.Steps)
		}
	}

	return 0
}

func findAction(ctx context.Context, c *client.Client, connectionID, actionID string) (*models.Connection, *models.Action, error) {
	connections, err := c.ListConnections(ctx)
	if err != nil {
		return nil, nil, err
	}

	for _, connection := range connections {
		if connection.ID != connectionID {
			continue
		}

		action, ok := connection.Action(actionID)
		if !ok {
			return nil, nil, fmt.Errorf("connection %s has no action %s", connectionID, actionID)
		}

		return connection, action, nil
	}

	return nil, nil, fmt.Errorf("connection %s not found", connectionID)
}

func editFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:     "file",
			Aliases:  []string{"f"},
			Usage:    "Integration document to edit in place",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "flow",
			Usage:    "Flow id",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "position",
			Usage: "Step position; inserts default to the end of the flow",
			Value: appendPosition,
		},
		&cli.StringSliceFlag{
			Name:    "prop",
			Aliases: []string{"p"},
			Usage:   "Configured property as key=value (repeatable)",
		},
	}, extra...)
}

func connectionFlags() []cli.Flag {
	return editFlags(
		&cli.StringFlag{Name: "connection", Usage: "Connection id", Required: true},
		&cli.StringFlag{Name: "action", Usage: "Action id", Required: true},
	)
}

func stepFlags() []cli.Flag {
	return editFlags(
		&cli.StringFlag{Name: "kind", Usage: "Step kind (e.g. log, split)", Required: true},
		&cli.StringFlag{Name: "name", Usage: "Step name"},
		&cli.StringFlag{Name: "id", Usage: "Step id"},
	)
}

type connectionEdit func(
	h *editor.Helpers,
	ctx context.Context,
	doc *models.Integration,
	connection *models.Connection,
	action *models.Action,
	flowID string,
	position int,
	props map[string]any,
) (*models.Integration, error)

type stepEdit func(
	h *editor.Helpers,
	ctx context.Context,
	doc *models.Integration,
	template *models.StepKindTemplate,
	flowID string,
	position int,
	props map[string]any,
) (*models.Integration, error)

func connectionEditAction(edit connectionEdit) cli.ActionFunc {
	return clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
		doc, err := readDocument(cmd.String("file"))
		if err != nil {
			return err
		}

		props, err := parseProps(cmd.StringSlice("prop"))
		if err != nil {
			return err
		}

		connection, action, err := findAction(ctx, c, cmd.String("connection"), cmd.String("action"))
		if err != nil {
			return err
		}

		flowID := cmd.String("flow")

		next, err := edit(editor.NewHelpers(c), ctx, doc, connection, action, flowID,
			stepPosition(doc, flowID, cmd.Int("position")), props)
		if err != nil {
			return err
		}

		return writeDocument(cmd.String("file"), next)
	})
}

func stepEditAction(edit stepEdit) cli.ActionFunc {
	return clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
		doc, err := readDocument(cmd.String("file"))
		if err != nil {
			return err
		}

		props, err := parseProps(cmd.StringSlice("prop"))
		if err != nil {
			return err
		}

		template := &models.StepKindTemplate{
			ID:       cmd.String("id"),
			StepKind: cmd.String("kind"),
			Name:     cmd.String("name"),
		}

		flowID := cmd.String("flow")

		next, err := edit(editor.NewHelpers(c), ctx, doc, template, flowID,
			stepPosition(doc, flowID, cmd.Int("position")), props)
		if err != nil {
			return err
		}

		return writeDocument(cmd.String("file"), next)
	})
}

func documentCommand() *cli.Command {
	return &cli.Command{
		Name:    "doc",
		Aliases: []string{"d"},
		Usage:   "Edit a local integration document",
		Commands: []*cli.Command{
			{
				Name:   "add-connection",
				Usage:  "Insert a connection step, resolving its action descriptor",
				Flags:  connectionFlags(),
				Action: connectionEditAction((*editor.Helpers).AddConnection),
			},
			{
				Name:   "update-connection",
				Usage:  "Replace the connection step at a position",
				Flags:  connectionFlags(),
				Action: connectionEditAction((*editor.Helpers).UpdateConnection),
			},
			{
				Name:   "upsert-connection",
				Usage:  "Replace the connection step at a position or append it",
				Flags:  connectionFlags(),
				Action: connectionEditAction((*editor.Helpers).UpdateOrAddConnection),
			},
			{
				Name:   "add-step",
				Usage:  "Insert a generic step",
				Flags:  stepFlags(),
				Action: stepEditAction((*editor.Helpers).AddStep),
			},
			{
				Name:   "update-step",
				Usage:  "Replace the generic step at a position",
				Flags:  stepFlags(),
				Action: stepEditAction((*editor.Helpers).UpdateStep),
			},
		},
	}
}
