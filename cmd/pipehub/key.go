package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"pipehub/internal/domain/tenantkey"
)

func keyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "convert between app ids and tenant keys",
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "print the tenant key for an app id",
				ArgsUsage: "<app_id>",
				Action: func(_ context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return errors.New("expected exactly one app id")
					}
					appID, err := strconv.ParseInt(c.Args().First(), 10, 64)
					if err != nil {
						return fmt.Errorf("parse app id: %w", err)
					}
					_, err = fmt.Fprintln(c.Root().Writer, tenantkey.Encode(appID))
					return err
				},
			},
			{
				Name:      "decode",
				Usage:     "print the app id encoded in a tenant key",
				ArgsUsage: "<key>",
				Action: func(_ context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return errors.New("expected exactly one key")
					}
					appID, err := tenantkey.Decode(c.Args().First())
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(c.Root().Writer, appID)
					return err
				},
			},
		},
	}
}
