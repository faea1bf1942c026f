package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/walletvault/vault-integrity-engine/chain"
	enginecommon "github.com/walletvault/vault-integrity-engine/common"
	"github.com/walletvault/vault-integrity-engine/cryptoutils"
	"github.com/walletvault/vault-integrity-engine/discovery"
	"github.com/walletvault/vault-integrity-engine/interfaces"
	"github.com/walletvault/vault-integrity-engine/prover"
	"github.com/walletvault/vault-integrity-engine/storage"
	"github.com/walletvault/vault-integrity-engine/vault"
	"github.com/walletvault/vault-integrity-engine/verifier"
)

var (
	rpcAddrFlag = &cli.StringFlag{
		Name:  "rpc-addr",
		Value: "http://127.0.0.1:8545",
		Usage: "address to connect to RPC",
	}
	contractAddrFlag = &cli.StringFlag{
		Name:     "contract-addr",
		Required: true,
		Usage:    "vault registry contract address",
	}
	privateKeyFlag = &cli.StringFlag{
		Name:     "private-key",
		Required: true,
		Usage:    "hex-encoded private key of the vault owner",
		EnvVars:  []string{"VAULTCTL_PRIVATE_KEY"},
	}
	blobURIFlag = &cli.StringSliceFlag{
		Name:  "blob-uri",
		Value: cli.NewStringSlice("file://" + defaultBlobDir()),
		Usage: "blob store location URI (repeatable: ipfs://, s3://, vault://, file://, mem://)",
	}
	dbPathFlag = &cli.StringFlag{
		Name:  "db-path",
		Value: defaultDBPath(),
		Usage: "path to the local entry database",
	}
	proofServerFlag = &cli.StringFlag{
		Name:  "proof-server-addr",
		Value: "http://127.0.0.1:8090",
		Usage: "proof backend address",
	}
	discoverZoneFlag = &cli.StringFlag{
		Name:  "discover-zone",
		Usage: "DNS zone to discover proof backend and blob gateway endpoints from (SRV records)",
	}
	insecureDerivationFlag = &cli.BoolFlag{
		Name:  "insecure-key-derivation",
		Value: false,
		Usage: "derive the session key from the raw private key instead of a signature (development only)",
	}
	logJSONFlag = &cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	}
	logDebugFlag = &cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	}
)

func defaultBlobDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vaultctl-blobs"
	}
	return home + "/.vaultctl/blobs"
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vaultctl.db"
	}
	return home + "/.vaultctl/entries.db"
}

func main() {
	app := &cli.App{
		Name:  "vaultctl",
		Usage: "manage vault entries committed on chain",
		Flags: []cli.Flag{
			rpcAddrFlag,
			contractAddrFlag,
			privateKeyFlag,
			blobURIFlag,
			dbPathFlag,
			proofServerFlag,
			discoverZoneFlag,
			insecureDerivationFlag,
			logJSONFlag,
			logDebugFlag,
		},
		Commands: []*cli.Command{
			{
				Name:      "store",
				Usage:     "encrypt and commit a new entry",
				ArgsUsage: "<service> <username> <password>",
				Action:    withApp(runStore),
			},
			{
				Name:   "list",
				Usage:  "list active entries, newest first",
				Action: withApp(runList),
			},
			{
				Name:      "get",
				Usage:     "decrypt an entry by id (active or deleted)",
				ArgsUsage: "<entry-id>",
				Action:    withApp(runGet),
			},
			{
				Name:      "update",
				Usage:     "commit a superseding revision of an entry",
				ArgsUsage: "<entry-id> <service> <username> <password>",
				Action:    withApp(runUpdate),
			},
			{
				Name:      "delete",
				Usage:     "soft-delete an entry; history stays readable",
				ArgsUsage: "<entry-id>",
				Action:    withApp(runDelete),
			},
			{
				Name:      "recover",
				Usage:     "recover an entry with full integrity verification",
				ArgsUsage: "<entry-id>",
				Action:    withApp(runRecover),
			},
			{
				Name:      "recovery-kit",
				Usage:     "split the session key into Shamir shares for offline recovery",
				ArgsUsage: "<shares> <threshold>",
				Action:    withApp(runRecoveryKit),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type appContext struct {
	orch    *vault.Orchestrator
	session *vault.Session
	log     *slog.Logger
}

func withApp(action func(cCtx *cli.Context, app *appContext) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		app, err := buildApp(cCtx)
		if err != nil {
			return err
		}
		defer app.session.SignOut()
		return action(cCtx, app)
	}
}

func buildApp(cCtx *cli.Context) (*appContext, error) {
	logger := enginecommon.SetupLogger(&enginecommon.LoggingOpts{
		Debug:   cCtx.Bool(logDebugFlag.Name),
		JSON:    cCtx.Bool(logJSONFlag.Name),
		Service: "vaultctl",
		Version: enginecommon.Version,
	})

	signer, err := chain.NewLocalKeySigner(cCtx.String(privateKeyFlag.Name))
	if err != nil {
		return nil, err
	}

	ethClient, err := ethclient.Dial(cCtx.String(rpcAddrFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("could not connect to RPC: %w", err)
	}
	chainID, err := ethClient.ChainID(cCtx.Context)
	if err != nil {
		return nil, fmt.Errorf("could not fetch chain id: %w", err)
	}

	contractAddr := common.HexToAddress(cCtx.String(contractAddrFlag.Name))
	registry, err := chain.NewVaultRegistryClient(ethClient, contractAddr, chainID)
	if err != nil {
		return nil, err
	}
	auth, err := signer.TransactOpts(chainID)
	if err != nil {
		return nil, fmt.Errorf("could not build transactor: %w", err)
	}
	registry.SetTransactOpts(auth)

	proofServerAddr := cCtx.String(proofServerFlag.Name)
	blobURIs := cCtx.StringSlice(blobURIFlag.Name)
	if zone := cCtx.String(discoverZoneFlag.Name); zone != "" {
		eps, err := discovery.NewResolver("", logger).ResolveEndpoints(zone)
		if err != nil {
			return nil, fmt.Errorf("endpoint discovery for zone %s failed: %w", zone, err)
		}
		if url := eps.ProofBackendURL(); url != "" {
			logger.Info("Discovered proof backend", slog.String("zone", zone), slog.String("addr", url))
			proofServerAddr = url
		}
		if uris := eps.BlobGatewayURIs(); len(uris) > 0 {
			logger.Info("Discovered blob gateways", slog.String("zone", zone), slog.Int("count", len(uris)))
			blobURIs = append(blobURIs, uris...)
		}
	}

	blob, err := storage.NewBlobStoreFactory(logger).CreateMultiStore(blobURIs)
	if err != nil {
		return nil, err
	}

	session, err := vault.NewSession(&vault.SessionConfig{
		Signer:                 signer,
		AllowInsecureKeyExport: cCtx.Bool(insecureDerivationFlag.Name),
		Log:                    logger,
	})
	if err != nil {
		return nil, err
	}

	store, err := vault.NewLocalStore(cCtx.String(dbPathFlag.Name), logger)
	if err != nil {
		return nil, err
	}

	orch := vault.NewOrchestrator(&vault.OrchestratorConfig{
		Session:  session,
		Blob:     blob,
		Contract: registry,
		Store:    store,
		Verifier: verifier.New(&verifier.Config{
			Blob:     blob,
			Contract: registry,
			Prover:   prover.NewClient(proofServerAddr, logger),
			Log:      logger,
		}),
		Log: logger,
	})

	return &appContext{orch: orch, session: session, log: logger}, nil
}

func runStore(cCtx *cli.Context, app *appContext) error {
	if cCtx.NArg() != 3 {
		return fmt.Errorf("usage: store <service> <username> <password>")
	}

	entryID, err := app.orch.StoreEntry(cCtx.Context, &cryptoutils.EntryPlaintext{
		Service:  cCtx.Args().Get(0),
		Username: cCtx.Args().Get(1),
		Password: cCtx.Args().Get(2),
	})
	if err != nil {
		return err
	}
	fmt.Println(entryID.String())
	return nil
}

func runList(cCtx *cli.Context, app *appContext) error {
	entries, err := app.orch.ListActiveEntries(cCtx.Context)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Printf("%s\t%s\trev %d\t%s\n", entry.EntryID, entry.Service, entry.Revision, entry.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runGet(cCtx *cli.Context, app *appContext) error {
	entryID, err := parseEntryIDArg(cCtx)
	if err != nil {
		return err
	}

	entry, head, err := app.orch.GetEntry(cCtx.Context, entryID)
	if err != nil {
		return err
	}
	out, _ := json.MarshalIndent(map[string]any{
		"entry":    entry,
		"revision": head.Revision,
		"isActive": head.IsActive,
	}, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runUpdate(cCtx *cli.Context, app *appContext) error {
	if cCtx.NArg() != 4 {
		return fmt.Errorf("usage: update <entry-id> <service> <username> <password>")
	}
	entryID, err := interfaces.NewEntryIDFromHex(cCtx.Args().Get(0))
	if err != nil {
		return err
	}

	return app.orch.UpdateEntry(cCtx.Context, entryID, &cryptoutils.EntryPlaintext{
		Service:  cCtx.Args().Get(1),
		Username: cCtx.Args().Get(2),
		Password: cCtx.Args().Get(3),
	})
}

func runDelete(cCtx *cli.Context, app *appContext) error {
	entryID, err := parseEntryIDArg(cCtx)
	if err != nil {
		return err
	}
	return app.orch.DeleteEntry(cCtx.Context, entryID)
}

func runRecover(cCtx *cli.Context, app *appContext) error {
	entryID, err := parseEntryIDArg(cCtx)
	if err != nil {
		return err
	}

	result, err := app.orch.RecoverWithIntegrityVerification(cCtx.Context, entryID)
	if err != nil {
		return err
	}
	out, _ := json.MarshalIndent(map[string]any{
		"password":          result.Password,
		"integrityVerified": result.IntegrityVerified,
		"proof":             base64.StdEncoding.EncodeToString(result.Proof),
	}, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runRecoveryKit(cCtx *cli.Context, app *appContext) error {
	if cCtx.NArg() != 2 {
		return fmt.Errorf("usage: recovery-kit <shares> <threshold>")
	}
	shares, err := parsePositive(cCtx.Args().Get(0))
	if err != nil {
		return err
	}
	threshold, err := parsePositive(cCtx.Args().Get(1))
	if err != nil {
		return err
	}

	key, err := app.session.Key(cCtx.Context)
	if err != nil {
		return err
	}

	kit, err := cryptoutils.SplitRecoveryKit(key, shares, threshold)
	if err != nil {
		return err
	}
	for i, share := range kit {
		fmt.Printf("share %d: %s\n", i+1, base64.StdEncoding.EncodeToString(share))
	}
	return nil
}

func parseEntryIDArg(cCtx *cli.Context) (interfaces.EntryID, error) {
	if cCtx.NArg() != 1 {
		return interfaces.EntryID{}, fmt.Errorf("expected exactly one <entry-id> argument")
	}
	return interfaces.NewEntryIDFromHex(strings.TrimSpace(cCtx.Args().Get(0)))
}

func parsePositive(arg string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(arg, "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("expected a positive integer, got %q", arg)
	}
	return n, nil
}
