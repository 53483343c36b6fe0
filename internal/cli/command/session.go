package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/authrelay-go/internal/cli/output"
)

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Inspect and manage stored sessions",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print the claims stored for a session",
				ArgsUsage: "SESSION_ID",
				Action:    sessionGet,
			},
			{
				Name:  "create",
				Usage: "Store claims under a new session id",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "claim",
						Usage:    "Claim as TYPE=VALUE or TYPE:KIND=VALUE (repeatable)",
						Required: true,
					},
				},
				Action: sessionCreate,
			},
			{
				Name:      "drop",
				Aliases:   []string{"rm"},
				Usage:     "Delete a session",
				ArgsUsage: "SESSION_ID",
				Action:    sessionDrop,
			},
			{
				Name:  "sweep",
				Usage: "Delete sessions older than the retention window",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "retention",
						Usage: "Retention window (default sweep.retention)",
					},
				},
				Action: sessionSweep,
			},
		},
	}
}

func sessionID(c *cli.Context) (string, error) {
	id := c.Args().First()
	if id == "" {
		return "", cli.Exit("SESSION_ID is required", 2)
	}
	return id, nil
}

func sessionGet(c *cli.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sessions, closeStore, err := openSessions(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	claims, found, err := sessions.Get(c.Context, id)
	if err != nil {
		return err
	}
	if !found {
		return cli.Exit(fmt.Sprintf("session %s not found", id), 1)
	}
	return render(c, claimList(claims))
}

func sessionCreate(c *cli.Context) error {
	claims, err := parseClaims(c.StringSlice("claim"))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sessions, closeStore, err := openSessions(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	id, err := sessions.Store(c.Context, claims)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, id)
	return err
}

func sessionDrop(c *cli.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	sessions, closeStore, err := openSessions(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := sessions.Drop(c.Context, id); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "session %s dropped\n", id)
	return err
}

type sweepResult struct {
	Deleted   int    `json:"deleted" yaml:"deleted"`
	Retention string `json:"retention" yaml:"retention"`
	Elapsed   string `json:"elapsed" yaml:"elapsed"`
}

func (r sweepResult) Table() *output.Table {
	t := output.NewTable("DELETED", "RETENTION", "ELAPSED")
	t.AddRow(fmt.Sprint(r.Deleted), r.Retention, r.Elapsed)
	return t
}

func sessionSweep(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	retention := c.Duration("retention")
	if retention <= 0 {
		retention = cfg.Sweep.Retention
	}
	sessions, closeStore, err := openSessions(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	start := time.Now()
	n, err := sessions.Sweep(c.Context, retention)
	if err != nil {
		return err
	}
	return render(c, sweepResult{
		Deleted:   n,
		Retention: retention.String(),
		Elapsed:   time.Since(start).Round(time.Millisecond).String(),
	})
}
