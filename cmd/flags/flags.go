package flags

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/weighted-membership-registry/api"
	"github.com/ruteri/weighted-membership-registry/common"
	"github.com/ruteri/weighted-membership-registry/interfaces"
	"github.com/ruteri/weighted-membership-registry/storage"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	listenAddr := cCtx.String(ListenAddrFlag.Name)
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// ConfigureStorage builds the snapshot backend from the --storage URIs and
// the head store from --heads-file. An empty heads file keeps heads in
// memory, so registries do not survive a restart.
func ConfigureStorage(cCtx *cli.Context, logger *slog.Logger) (interfaces.StorageBackend, interfaces.HeadStore, error) {
	uris := cCtx.StringSlice(StorageFlag.Name)
	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		location, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid storage URI %q: %w", uri, err)
		}
		locations = append(locations, location)
	}

	backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
	if err != nil {
		return nil, nil, err
	}

	headsFile := cCtx.String(HeadsFileFlag.Name)
	if headsFile == "" {
		logger.Warn("No heads file configured, registry heads are kept in memory")
		return backend, storage.NewMemoryHeadStore(), nil
	}

	heads, err := storage.NewFileHeadStore(headsFile, logger)
	if err != nil {
		return nil, nil, err
	}
	return backend, heads, nil
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var StorageFlag = &cli.StringSliceFlag{
	Name:  "storage",
	Value: cli.NewStringSlice("file://./data/snapshots"),
	Usage: "snapshot storage URI (file://, s3://, ipfs://, vault://, github://), repeatable",
}

var HeadsFileFlag = &cli.StringFlag{
	Name:  "heads-file",
	Value: "./data/heads.json",
	Usage: "file tracking the latest snapshot of every registry, empty to keep heads in memory",
}

var ServerAddrFlag = &cli.StringFlag{
	Name:  "server-addr",
	Value: "http://127.0.0.1:8080",
	Usage: "registry server address",
}

var SrvDomainFlag = &cli.StringFlag{
	Name:  "srv-domain",
	Usage: "resolve the server address from SRV records of this domain instead of --server-addr",
}

var DNSResolverFlag = &cli.StringFlag{
	Name:  "dns-resolver",
	Value: "127.0.0.53:53",
	Usage: "DNS resolver used for --srv-domain",
}

var PrivkeyFlag = &cli.StringFlag{
	Name:    "privkey",
	EnvVars: []string{"REGISTRY_PRIVKEY"},
	Usage:   "hex-encoded secp256k1 private key signing mutations",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "membership-registry",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to report not ready before shutting down",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var CommonFlags = append([]cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}, LogFlags...)
