package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dukex/conduit/pkg/activity"
	"github.com/dukex/conduit/pkg/client"
	"github.com/dukex/conduit/pkg/duration"
	"github.com/dukex/conduit/pkg/forms"
	"github.com/dukex/conduit/pkg/log"
	"github.com/dukex/conduit/pkg/models"
	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func connectionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "connections",
		Usage: "List the configured connections and their actions",
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			connections, err := c.ListConnections(ctx)
			if err != nil {
				return err
			}

			table := newTable(cmd.Root().Writer)
			fmt.Fprintln(table, "CONNECTION\tNAME\tACTIONS")

			for _, connection := range connections {
				actions := make([]string, 0, len(connection.Actions))
				for _, action := range connection.Actions {
					actions = append(actions, action.ID)
				}

				fmt.Fprintf(table, "%s\t%s\t%s\n", connection.ID, connection.Name, strings.Join(actions, ","))
			}

			return table.Flush()
		}),
	}
}

func descriptorCommand() *cli.Command {
	return &cli.Command{
		Name:      "descriptor",
		Usage:     "Show the form fields of an action given configured properties",
		ArgsUsage: "<connection-id> <action-id>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "prop", Aliases: []string{"p"}, Usage: "Configured property as key=value (repeatable)"},
		},
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 2); err != nil {
				return err
			}

			props, err := parseProps(cmd.StringSlice("prop"))
			if err != nil {
				return err
			}

			descriptor, err := c.GetActionDescriptor(ctx, cmd.Args().Get(0), cmd.Args().Get(1), props)
			if err != nil {
				return err
			}

			if descriptor == nil {
				_, err := fmt.Fprintln(cmd.Root().Writer, "no configured properties, nothing to resolve")

				return err
			}

			return printDescriptor(cmd.Root().Writer, descriptor, props)
		}),
	}
}

func printDescriptor(w io.Writer, descriptor *models.ActionDescriptor, props map[string]any) error {
	for _, step := range descriptor.PropertyDefinitionSteps {
		definition, err := forms.ToFormDefinition(step.Properties)
		if err != nil {
			return err
		}

		complete := "incomplete"
		if forms.RequiredSet(step.Properties, props) {
			complete = "complete"
		}

		fmt.Fprintf(w, "%s (%s)\n", step.Name, complete)

		table := newTable(w)
		fmt.Fprintln(table, "  PROPERTY\tLABEL\tTYPE\tREQUIRED\tVALUE")

		for _, key := range forms.SortedKeys(step.Properties) {
			field := definition[key]

			value := field.Value
			if field.Secret && value != "" {
				value = "********"
			}

			fmt.Fprintf(table, "  %s\t%s\t%s\t%t\t%s\n", key, field.DisplayName, field.Type, field.Required, value)
		}

		if err := table.Flush(); err != nil {
			return err
		}
	}

	return nil
}

func deploymentCommand() *cli.Command {
	return &cli.Command{
		Name:      "deployment",
		Usage:     "Show the state of a deployment",
		ArgsUsage: "<integration-id> <version>",
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 2); err != nil {
				return err
			}

			version, err := parseVersion(cmd.Args().Get(1))
			if err != nil {
				return err
			}

			deployment, err := c.GetDeployment(ctx, cmd.Args().First(), version)
			if err != nil {
				return err
			}

			printDeployment(cmd.Root().Writer, deployment, time.Now())

			return nil
		}),
	}
}

func printDeployment(w io.Writer, deployment *models.Deployment, now time.Time) {
	table := newTable(w)
	fmt.Fprintf(table, "Version\t%d\n", deployment.Version)
	fmt.Fprintf(table, "Target state\t%s\n", deployment.TargetState)
	fmt.Fprintf(table, "Current state\t%s\n", deployment.CurrentState)
	fmt.Fprintf(table, "Deployed\t%s\n", strings.TrimSpace(duration.DifferenceString(deployment.CreatedAt, now, duration.DefaultValue)))
	_ = table.Flush()
}

func activityCommand() *cli.Command {
	return &cli.Command{
		Name:      "activity",
		Usage:     "Show the recent exchanges of an integration",
		ArgsUsage: "<integration-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "steps", Usage: "Show a row per step"},
		},
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}

			activities, err := c.GetActivity(ctx, cmd.Args().First())
			if err != nil {
				return err
			}

			return printActivity(cmd.Root().Writer, activity.SummarizeAll(activities, time.Local), cmd.Bool("steps"))
		}),
	}
}

func printActivity(w io.Writer, summaries []activity.Summary, steps bool) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "no activity")

		return err
	}

	table := newTable(w)
	fmt.Fprintln(table, "EXCHANGE\tVERSION\tDATE\tTIME\tERRORS\tSTATUS")

	for _, summary := range summaries {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%d\t%s\n",
			summary.ID, summary.Version, summary.Date, summary.Time, summary.ErrorCount, summary.Status)

		if !steps {
			continue
		}

		for _, row := range summary.Rows {
			fmt.Fprintf(table, "  %s\t%s\t%s\t%s\t\t%s\n",
				row.Step, row.Time, row.Duration, firstLine(row.Output), row.Status)
		}
	}

	return table.Flush()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")

	return line
}

func monitorCommand() *cli.Command {
	return &cli.Command{
		Name:      "monitor",
		Usage:     "Report deployment state and activity on a schedule",
		ArgsUsage: "<integration-id>",
		Flags: []cli.Flag{
			versionFlag(true),
			&cli.StringFlag{
				Name:  "schedule",
				Usage: "Cron expression or descriptor such as '@every 30s'",
				Value: "@every 30s",
			},
		},
		Action: clientAction(func(ctx context.Context, cmd *cli.Command, c *client.Client) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}

			return monitor(ctx, c, cmd.Root().Writer, cmd.Args().First(), cmd.Int("version"), cmd.String("schedule"))
		}),
	}
}

// monitor reports once immediately and then on every schedule tick until
// ctx is done.
func monitor(ctx context.Context, c *client.Client, w io.Writer, id string, version int, schedule string) error {
	logger := log.WithModule("monitor").With("integration_id", id, "schedule", schedule)

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	reports := make(chan struct{}, 1)

	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := scheduler.AddFunc(schedule, func() {
		select {
		case reports <- struct{}{}:
		default:
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule monitor: %w", err)
	}

	scheduler.Start()
	defer scheduler.Stop()

	logger.InfoContext(ctx, "Monitoring integration")

	for {
		if err := report(ctx, c, w, id, version); err != nil {
			logger.ErrorContext(ctx, "Monitor report failed", "error", err)
			fmt.Fprintf(w, "%s report failed: %v\n", time.Now().Format(activity.TimeLayout), err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-reports:
		}
	}
}

func report(ctx context.Context, c *client.Client, w io.Writer, id string, version int) error {
	deployment, err := c.GetDeployment(ctx, id, version)
	if err != nil {
		return err
	}

	activities, err := c.GetActivity(ctx, id)
	if err != nil {
		return err
	}

	summaries := activity.SummarizeAll(activities, time.Local)

	errorsSeen := 0
	for _, summary := range summaries {
		if summary.Status == activity.StatusError {
			errorsSeen++
		}
	}

	_, err = fmt.Fprintf(w, "%s version %d %s/%s exchanges=%d failed=%d\n",
		time.Now().Format(activity.TimeLayout), deployment.Version,
		deployment.CurrentState, deployment.TargetState, len(summaries), errorsSeen)

	return err
}
