package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/identity-registry/api/clients"
	"github.com/ruteri/identity-registry/cmd/flags"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/urfave/cli/v2"
)

var flagNickname = &cli.StringFlag{
	Name:  "nickname",
	Usage: "contact nickname, empty for none",
}

var flagChainName = &cli.StringFlag{Name: "name", Usage: "chain name"}
var flagRPCURL = &cli.StringFlag{Name: "rpc-url", Usage: "chain RPC endpoint, appended on update"}
var flagAccountType = &cli.StringFlag{Name: "account-type", Usage: "AccountId32 or AccountKey20"}
var flagSS58Prefix = &cli.UintFlag{Name: "ss58-prefix", Usage: "SS58 address prefix of substrate chains"}
var flagSince = &cli.Uint64Flag{Name: "since", Usage: "return events after this sequence number"}
var flagLimit = &cli.IntFlag{Name: "limit", Usage: "maximum number of events"}

func main() {
	app := &cli.App{
		Name:  "registrycli",
		Usage: "Manage identities, chains and address books on a registry server",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.KeyFileFlag,
		},
		Commands: []*cli.Command{
			{
				Name:      "keygen",
				Usage:     "generate a signing key and write it to --key-file",
				Action:    keygen,
				ArgsUsage: " ",
			},
			{
				Name:  "create-identity",
				Usage: "create an identity owned by the signing account",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					no, err := c.CreateIdentity(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(map[string]any{"identity_no": no})
				}),
			},
			{
				Name:  "remove-identity",
				Usage: "remove the signing account's identity",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					return c.RemoveIdentity(cCtx.Context)
				}),
			},
			{
				Name:      "add-address",
				Usage:     "add an address for a chain",
				ArgsUsage: "<chain-id> <0x-address>",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					chain, address, err := chainAndAddress(cCtx)
					if err != nil {
						return err
					}
					return c.AddAddress(cCtx.Context, chain, address)
				}),
			},
			{
				Name:      "update-address",
				Usage:     "replace the address for a chain",
				ArgsUsage: "<chain-id> <0x-address>",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					chain, address, err := chainAndAddress(cCtx)
					if err != nil {
						return err
					}
					return c.UpdateAddress(cCtx.Context, chain, address)
				}),
			},
			{
				Name:      "remove-address",
				Usage:     "remove the address for a chain",
				ArgsUsage: "<chain-id>",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					chain, err := interfaces.ParseChainID(cCtx.Args().First())
					if err != nil {
						return err
					}
					return c.RemoveAddress(cCtx.Context, chain)
				}),
			},
			{
				Name:      "set-recovery",
				Usage:     "set the recovery account of the signing account's identity",
				ArgsUsage: "<account>",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					account, err := interfaces.NewAccountIDFromHex(cCtx.Args().First())
					if err != nil {
						return err
					}
					return c.SetRecoveryAccount(cCtx.Context, account)
				}),
			},
			{
				Name:      "transfer",
				Usage:     "transfer an identity, as its owner or recovery account",
				ArgsUsage: "<identity-no> <new-owner>",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					no, err := interfaces.ParseIdentityNo(cCtx.Args().Get(0))
					if err != nil {
						return err
					}
					newOwner, err := interfaces.NewAccountIDFromHex(cCtx.Args().Get(1))
					if err != nil {
						return err
					}
					return c.TransferOwnership(cCtx.Context, no, newOwner)
				}),
			},
			{
				Name:      "identity",
				Usage:     "show an identity",
				ArgsUsage: "<identity-no>",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					no, err := interfaces.ParseIdentityNo(cCtx.Args().First())
					if err != nil {
						return err
					}
					identity, err := c.Identity(cCtx.Context, no)
					if err != nil {
						return err
					}
					return printJSON(identity)
				}),
			},
			{
				Name:      "destination",
				Usage:     "resolve the address of an identity on a chain",
				ArgsUsage: "<identity-no> <chain-id>",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					no, err := interfaces.ParseIdentityNo(cCtx.Args().Get(0))
					if err != nil {
						return err
					}
					chain, err := interfaces.ParseChainID(cCtx.Args().Get(1))
					if err != nil {
						return err
					}
					address, err := c.TransactionDestination(cCtx.Context, no, chain)
					if err != nil {
						return err
					}
					fmt.Println(address.String())
					return nil
				}),
			},
			{
				Name:  "add-chain",
				Usage: "add a chain to the directory (admin)",
				Flags: []cli.Flag{flagChainName, flagRPCURL, flagAccountType, flagSS58Prefix},
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					info, err := chainInfoFromFlags(cCtx)
					if err != nil {
						return err
					}
					chain, err := c.AddChain(cCtx.Context, info)
					if err != nil {
						return err
					}
					return printJSON(map[string]any{"chain_id": chain})
				}),
			},
			{
				Name:      "update-chain",
				Usage:     "update a chain, --rpc-url is appended to its endpoints (admin)",
				ArgsUsage: "<chain-id>",
				Flags:     []cli.Flag{flagChainName, flagRPCURL, flagAccountType, flagSS58Prefix},
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					chain, err := interfaces.ParseChainID(cCtx.Args().First())
					if err != nil {
						return err
					}
					update, err := chainUpdateFromFlags(cCtx)
					if err != nil {
						return err
					}
					return c.UpdateChain(cCtx.Context, chain, update)
				}),
			},
			{
				Name:      "remove-chain",
				Usage:     "remove a chain from the directory (admin)",
				ArgsUsage: "<chain-id>",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					chain, err := interfaces.ParseChainID(cCtx.Args().First())
					if err != nil {
						return err
					}
					return c.RemoveChain(cCtx.Context, chain)
				}),
			},
			{
				Name:  "chains",
				Usage: "list the chain directory",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					chains, err := c.AvailableChains(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(chains)
				}),
			},
			{
				Name:  "create-book",
				Usage: "create the signing account's address book",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					return c.CreateAddressBook(cCtx.Context)
				}),
			},
			{
				Name:  "remove-book",
				Usage: "remove the signing account's address book",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					return c.RemoveAddressBook(cCtx.Context)
				}),
			},
			{
				Name:      "add-contact",
				Usage:     "add an identity to the address book",
				ArgsUsage: "<identity-no>",
				Flags:     []cli.Flag{flagNickname},
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					no, err := interfaces.ParseIdentityNo(cCtx.Args().First())
					if err != nil {
						return err
					}
					return c.AddContact(cCtx.Context, no, interfaces.NewContact(no, cCtx.String(flagNickname.Name)).Nickname)
				}),
			},
			{
				Name:      "remove-contact",
				Usage:     "remove an identity from the address book",
				ArgsUsage: "<identity-no>",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					no, err := interfaces.ParseIdentityNo(cCtx.Args().First())
					if err != nil {
						return err
					}
					return c.RemoveContact(cCtx.Context, no)
				}),
			},
			{
				Name:      "rename-contact",
				Usage:     "set or clear a contact's nickname",
				ArgsUsage: "<identity-no>",
				Flags:     []cli.Flag{flagNickname},
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					no, err := interfaces.ParseIdentityNo(cCtx.Args().First())
					if err != nil {
						return err
					}
					return c.UpdateNickname(cCtx.Context, no, interfaces.NewContact(no, cCtx.String(flagNickname.Name)).Nickname)
				}),
			},
			{
				Name:      "contacts",
				Usage:     "list an account's address book, the signing account by default",
				ArgsUsage: "[account]",
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					account, err := accountArg(cCtx, c)
					if err != nil {
						return err
					}
					contacts, err := c.Contacts(cCtx.Context, account)
					if err != nil {
						return err
					}
					return printJSON(contacts)
				}),
			},
			{
				Name:  "events",
				Usage: "print registry events",
				Flags: []cli.Flag{flagSince, flagLimit},
				Action: withClient(func(cCtx *cli.Context, c *clients.RegistryClient) error {
					resp, err := c.Events(cCtx.Context, cCtx.Uint64(flagSince.Name), cCtx.Int(flagLimit.Name))
					if err != nil {
						return err
					}
					return printJSON(resp)
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func keygen(cCtx *cli.Context) error {
	path := cCtx.String(flags.KeyFileFlag.Name)
	if path == "" {
		return errors.New("--key-file is required")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing key file %s", path)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveECDSA(path, key); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	fmt.Println(crypto.PubkeyToAddress(key.PublicKey).Hex())
	return nil
}

// withClient builds a client signing with --key-file, when given.
func withClient(fn func(cCtx *cli.Context, c *clients.RegistryClient) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		var key *ecdsa.PrivateKey
		if path := cCtx.String(flags.KeyFileFlag.Name); path != "" {
			loaded, err := crypto.LoadECDSA(path)
			if err != nil {
				return fmt.Errorf("failed to load key file: %w", err)
			}
			key = loaded
		}
		return fn(cCtx, clients.NewRegistryClient(cCtx.String(flags.ServerAddrFlag.Name), key))
	}
}

func chainAndAddress(cCtx *cli.Context) (interfaces.ChainID, interfaces.ChainAddress, error) {
	chain, err := interfaces.ParseChainID(cCtx.Args().Get(0))
	if err != nil {
		return 0, nil, err
	}
	var address interfaces.ChainAddress
	if err := address.UnmarshalText([]byte(cCtx.Args().Get(1))); err != nil {
		return 0, nil, err
	}
	return chain, address, nil
}

func accountArg(cCtx *cli.Context, c *clients.RegistryClient) (interfaces.AccountID, error) {
	if cCtx.Args().Present() {
		return interfaces.NewAccountIDFromHex(cCtx.Args().First())
	}
	return c.Account()
}

func chainInfoFromFlags(cCtx *cli.Context) (interfaces.ChainInfo, error) {
	update, err := chainUpdateFromFlags(cCtx)
	if err != nil {
		return interfaces.ChainInfo{}, err
	}
	if update.AccountType == nil {
		return interfaces.ChainInfo{}, errors.New("--account-type is required")
	}

	info := interfaces.ChainInfo{AccountType: *update.AccountType, SS58Prefix: update.SS58Prefix, RPCURLs: []string{}}
	if update.Name != nil {
		info.Name = *update.Name
	}
	if update.RPCURL != nil {
		info.RPCURLs = append(info.RPCURLs, *update.RPCURL)
	}
	return info, nil
}

func chainUpdateFromFlags(cCtx *cli.Context) (interfaces.ChainUpdate, error) {
	var update interfaces.ChainUpdate
	if cCtx.IsSet(flagChainName.Name) {
		name := cCtx.String(flagChainName.Name)
		update.Name = &name
	}
	if cCtx.IsSet(flagRPCURL.Name) {
		rpc := cCtx.String(flagRPCURL.Name)
		update.RPCURL = &rpc
	}
	if cCtx.IsSet(flagAccountType.Name) {
		accountType, err := interfaces.ParseAccountType(cCtx.String(flagAccountType.Name))
		if err != nil {
			return update, err
		}
		update.AccountType = &accountType
	}
	if cCtx.IsSet(flagSS58Prefix.Name) {
		value := cCtx.Uint(flagSS58Prefix.Name)
		if value > 0xffff {
			return update, fmt.Errorf("ss58 prefix %d out of range", value)
		}
		prefix := uint16(value)
		update.SS58Prefix = &prefix
	}
	return update, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
