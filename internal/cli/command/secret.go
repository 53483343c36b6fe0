package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/authrelay-go/internal/core/service"
)

// SecretCommand returns the secret subcommand group.
func SecretCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "Manage signing secrets",
		Subcommands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "Print a random secret suitable for jwt.secret",
				Action: secretGenerate,
			},
		},
	}
}

func secretGenerate(c *cli.Context) error {
	s, err := service.GenerateSharedSecret()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, s)
	return err
}
