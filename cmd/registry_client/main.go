package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/ruteri/weighted-membership-registry/api/clients"
	"github.com/ruteri/weighted-membership-registry/cmd/flags"
	"github.com/ruteri/weighted-membership-registry/discovery"
	"github.com/ruteri/weighted-membership-registry/identity"
	"github.com/ruteri/weighted-membership-registry/interfaces"
	"github.com/urfave/cli/v2"
)

var flagRegistry = &cli.StringFlag{
	Name:     "registry",
	Required: true,
	Usage:    "registry address",
}
var flagExpectedSequence = &cli.Uint64Flag{
	Name:  "expected-sequence",
	Usage: "reject the update unless the registry is at this sequence, defaults to the current sequence",
}

func main() {
	app := &cli.App{
		Name:  "registry-client",
		Usage: "Query and administer weighted membership registries",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.SrvDomainFlag,
			flags.DNSResolverFlag,
			flags.PrivkeyFlag,
		},
		Commands: []*cli.Command{
			{
				Name:  "generate-key",
				Usage: "generate a signing key and print it with its address",
				Action: func(cCtx *cli.Context) error {
					signer, err := identity.NewRandomSigner()
					if err != nil {
						return err
					}
					return printJSON(map[string]string{
						"address": signer.Address().String(),
						"privkey": signer.PrivateKeyHex(),
					})
				},
			},
			{
				Name:  "create",
				Usage: "create a registry",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "admin", Usage: "admin address, defaults to the signer"},
					&cli.StringSliceFlag{Name: "member", Required: true, Usage: "initial member as address:weight, repeatable"},
				},
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}

					var admin *interfaces.Address
					if raw := cCtx.String("admin"); raw != "" {
						addr, err := interfaces.NewAddressFromHex(raw)
						if err != nil {
							return fmt.Errorf("invalid admin: %w", err)
						}
						admin = &addr
					}

					members, err := parseMembers(cCtx.StringSlice("member"))
					if err != nil {
						return err
					}

					res, err := c.Create(cCtx.Context, admin, members)
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:  "list",
				Usage: "list hosted registries",
				Action: func(cCtx *cli.Context) error {
					c, err := newClient(cCtx)
					if err != nil {
						return err
					}
					res, err := c.List(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(res)
				},
			},
			{
				Name:  "admin",
				Usage: "print the admin of a registry",
				Flags: []cli.Flag{flagRegistry},
				Action: withRegistry(func(ctx context.Context, c *clients.RegistryClient, id interfaces.Address, cCtx *cli.Context) (any, error) {
					return c.Admin(ctx, id)
				}),
			},
			{
				Name:  "members",
				Usage: "print all members of a registry",
				Flags: []cli.Flag{flagRegistry},
				Action: withRegistry(func(ctx context.Context, c *clients.RegistryClient, id interfaces.Address, cCtx *cli.Context) (any, error) {
					return c.Members(ctx, id)
				}),
			},
			{
				Name:  "member",
				Usage: "print one member of a registry",
				Flags: []cli.Flag{flagRegistry, &cli.StringFlag{Name: "address", Required: true, Usage: "member address"}},
				Action: withRegistry(func(ctx context.Context, c *clients.RegistryClient, id interfaces.Address, cCtx *cli.Context) (any, error) {
					addr, err := interfaces.NewAddressFromHex(cCtx.String("address"))
					if err != nil {
						return nil, fmt.Errorf("invalid address: %w", err)
					}
					return c.Member(ctx, id, addr)
				}),
			},
			{
				Name:  "total-weight",
				Usage: "print the total weight of a registry",
				Flags: []cli.Flag{flagRegistry},
				Action: withRegistry(func(ctx context.Context, c *clients.RegistryClient, id interfaces.Address, cCtx *cli.Context) (any, error) {
					return c.TotalWeight(ctx, id)
				}),
			},
			{
				Name:  "history",
				Usage: "print the snapshots of a registry, newest first",
				Flags: []cli.Flag{flagRegistry, &cli.IntFlag{Name: "limit", Usage: "maximum number of snapshots"}},
				Action: withRegistry(func(ctx context.Context, c *clients.RegistryClient, id interfaces.Address, cCtx *cli.Context) (any, error) {
					return c.History(ctx, id, cCtx.Int("limit"))
				}),
			},
			{
				Name:  "update-admin",
				Usage: "transfer the admin role",
				Flags: []cli.Flag{
					flagRegistry,
					flagExpectedSequence,
					&cli.StringFlag{Name: "new-admin", Required: true, Usage: "new admin address"},
				},
				Action: withRegistry(func(ctx context.Context, c *clients.RegistryClient, id interfaces.Address, cCtx *cli.Context) (any, error) {
					newAdmin, err := interfaces.NewAddressFromHex(cCtx.String("new-admin"))
					if err != nil {
						return nil, fmt.Errorf("invalid new admin: %w", err)
					}
					return c.UpdateAdmin(ctx, id, newAdmin, expectedSequence(cCtx))
				}),
			},
			{
				Name:  "update-members",
				Usage: "upsert members, then remove members",
				Flags: []cli.Flag{
					flagRegistry,
					flagExpectedSequence,
					&cli.StringSliceFlag{Name: "upsert", Usage: "member to add or update as address:weight, repeatable"},
					&cli.StringSliceFlag{Name: "remove", Usage: "member address to remove, repeatable"},
				},
				Action: withRegistry(func(ctx context.Context, c *clients.RegistryClient, id interfaces.Address, cCtx *cli.Context) (any, error) {
					upserts, err := parseMembers(cCtx.StringSlice("upsert"))
					if err != nil {
						return nil, err
					}
					removals, err := parseAddresses(cCtx.StringSlice("remove"))
					if err != nil {
						return nil, err
					}
					return c.UpdateMembers(ctx, id, upserts, removals, expectedSequence(cCtx))
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type registryAction func(ctx context.Context, c *clients.RegistryClient, id interfaces.Address, cCtx *cli.Context) (any, error)

func withRegistry(fn registryAction) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		c, err := newClient(cCtx)
		if err != nil {
			return err
		}

		id, err := interfaces.NewAddressFromHex(cCtx.String(flagRegistry.Name))
		if err != nil {
			return fmt.Errorf("invalid registry: %w", err)
		}

		res, err := fn(cCtx.Context, c, id, cCtx)
		if err != nil {
			return err
		}
		return printJSON(res)
	}
}

// newClient resolves the server address and loads the signing key, if any.
func newClient(cCtx *cli.Context) (*clients.RegistryClient, error) {
	serverAddr := cCtx.String(flags.ServerAddrFlag.Name)
	if domain := cCtx.String(flags.SrvDomainFlag.Name); domain != "" {
		endpoints, err := discovery.ResolveEndpoints(domain, cCtx.String(flags.DNSResolverFlag.Name))
		if err != nil {
			return nil, err
		}
		serverAddr = endpoints[0]
	}

	var signer *identity.Signer
	if privkey := cCtx.String(flags.PrivkeyFlag.Name); privkey != "" {
		var err error
		signer, err = identity.NewSignerFromHex(privkey)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
	}

	return clients.NewRegistryClient(serverAddr, signer), nil
}

func expectedSequence(cCtx *cli.Context) *uint64 {
	if !cCtx.IsSet(flagExpectedSequence.Name) {
		return nil
	}
	seq := cCtx.Uint64(flagExpectedSequence.Name)
	return &seq
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
