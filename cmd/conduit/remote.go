package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dukex/conduit/pkg/client"
	cli "github.com/urfave/cli/v3"
)

func versionFlag(required bool) cli.Flag {
	return &cli.IntFlag{
		Name:     "version",
		Aliases:  []string{"v"},
		Usage:    "Deployment version",
		Required: required,
	}
}

func saveCommand() *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Create or update the integration held in a document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Integration document", Required: true},
		},
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			path := cmd.String("file")

			doc, err := readDocument(path)
			if err != nil {
				return err
			}

			saved, err := c.SaveIntegration(ctx, doc)
			if err != nil {
				return err
			}

			if err := writeDocument(path, saved); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.Root().Writer, saved.ID)

			return err
		}),
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch an integration document",
		ArgsUsage: "<integration-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the document to this file"},
		},
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}

			doc, err := c.GetIntegration(ctx, cmd.Args().First())
			if err != nil {
				return err
			}

			if output := cmd.String("output"); output != "" {
				return writeDocument(output, doc)
			}

			encoder := json.NewEncoder(cmd.Root().Writer)
			encoder.SetIndent("", "  ")

			return encoder.Encode(doc)
		}),
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an integration",
		ArgsUsage: "<integration-id>",
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}

			return c.DeleteIntegration(ctx, cmd.Args().First())
		}),
	}
}

func deployCommand() *cli.Command {
	return &cli.Command{
		Name:      "deploy",
		Usage:     "Deploy the current draft, or republish an existing deployment",
		ArgsUsage: "<integration-id>",
		Flags: []cli.Flag{
			versionFlag(false),
			&cli.BoolFlag{Name: "as-deployment", Usage: "Republish the deployment given by --version"},
		},
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}

			asDeployment := cmd.Bool("as-deployment")
			if asDeployment && cmd.Int("version") < 1 {
				return fmt.Errorf("%w: --as-deployment needs --version", errUsage)
			}

			return c.DeployIntegration(ctx, cmd.Args().First(), cmd.Int("version"), asDeployment)
		}),
	}
}

func undeployCommand() *cli.Command {
	return &cli.Command{
		Name:      "undeploy",
		Usage:     "Unpublish a deployment",
		ArgsUsage: "<integration-id>",
		Flags:     []cli.Flag{versionFlag(true)},
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}

			return c.UndeployIntegration(ctx, cmd.Args().First(), cmd.Int("version"))
		}),
	}
}

func revertCommand() *cli.Command {
	return &cli.Command{
		Name:      "revert",
		Usage:     "Replace the draft flows with those of a deployment",
		ArgsUsage: "<integration-id>",
		Flags:     []cli.Flag{versionFlag(true)},
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}

			return c.ReplaceDraft(ctx, cmd.Args().First(), cmd.Int("version"))
		}),
	}
}

func tagCommand() *cli.Command {
	return &cli.Command{
		Name:      "tag",
		Usage:     "Tag an integration for CI/CD environments",
		ArgsUsage: "<integration-id> [environment...]",
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}

			return c.TagIntegration(ctx, cmd.Args().First(), cmd.Args().Tail())
		}),
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import integrations from a zip archive",
		ArgsUsage: "<archive.zip>",
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}

			return c.ImportIntegrationFile(ctx, cmd.Args().First())
		}),
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export an integration as a zip archive",
		ArgsUsage: "<integration-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Archive file, <id>-export.zip by default"},
		},
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}

			id := cmd.Args().First()

			output := cmd.String("output")
			if output == "" {
				output = id + "-export.zip"
			}

			if err := c.ExportIntegrationToFile(ctx, id, output); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.Root().Writer, output)

			return err
		}),
	}
}

func parseVersion(value string) (int, error) {
	version, err := strconv.Atoi(value)
	if err != nil || version < 1 {
		return 0, fmt.Errorf("%w: version %q is not a positive number", errUsage, value)
	}

	return version, nil
}
