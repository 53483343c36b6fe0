package command

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue and inspect bearer tokens",
		Subcommands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "Sign a token with the given claims",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "claim",
						Usage:    "Claim as TYPE=VALUE or TYPE:KIND=VALUE (repeatable)",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime (default session.tokenttl)",
					},
					&cli.StringSliceFlag{
						Name:  "aud",
						Usage: "Extra audience (repeatable)",
					},
				},
				Action: tokenIssue,
			},
			{
				Name:      "inspect",
				Usage:     "Validate a token and print its claims",
				ArgsUsage: "[TOKEN] (reads stdin when omitted)",
				Action:    tokenInspect,
			},
		},
	}
}

func tokenIssue(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	tokens, err := newTokenManager(cfg)
	if err != nil {
		return err
	}
	claims, err := parseClaims(c.StringSlice("claim"))
	if err != nil {
		return err
	}

	ttl := c.Duration("ttl")
	if ttl <= 0 {
		ttl = cfg.Session.TokenTTL
	}
	tok, err := tokens.Generate(claims, ttl, c.StringSlice("aud")...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, tok)
	return err
}

func tokenInspect(c *cli.Context) error {
	raw := c.Args().First()
	if raw == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read token from stdin: %w", err)
		}
		raw = strings.TrimSpace(line)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	tokens, err := newTokenManager(cfg)
	if err != nil {
		return err
	}

	claims, err := tokens.ValidateErr(raw)
	if err != nil {
		return cli.Exit(fmt.Sprintf("token rejected: %v", err), 1)
	}
	return render(c, claimList(claims))
}
