package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/urfave/cli/v3"
)

// coinctl is a small operator tool for a running coinwatch server:
// trigger a sync, inspect sync health, print market stats.
func main() {
	cmd := &cli.Command{
		Name:  "coinctl",
		Usage: "operate a coinwatch server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "http://localhost:8080",
				Usage: "base URL of the coinwatch server",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "trigger a catalog sync",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return post(ctx, cmd.String("addr"), "/api/cryptocurrencies/sync")
				},
			},
			{
				Name:  "status",
				Usage: "show sync status",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return get(ctx, cmd.String("addr"), "/api/cryptocurrencies/sync-status")
				},
			},
			{
				Name:  "stats",
				Usage: "show market statistics",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return get(ctx, cmd.String("addr"), "/api/cryptocurrencies/stats")
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func get(ctx context.Context, addr, path string) error {
	resp, err := resty.New().SetBaseURL(addr).R().SetContext(ctx).Get(path)
	return print(resp, err)
}

func post(ctx context.Context, addr, path string) error {
	resp, err := resty.New().SetBaseURL(addr).R().SetContext(ctx).Post(path)
	return print(resp, err)
}

func print(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("server returned %s: %s", resp.Status(), resp.String())
	}
	fmt.Println(resp.String())
	return nil
}
