package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/identity-registry/api"
	"github.com/ruteri/identity-registry/common"
	"github.com/ruteri/identity-registry/config"
	"github.com/ruteri/identity-registry/interfaces"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

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

// LoadConfig reads the config file, if any, and applies the flags that were
// set explicitly on top of it.
func LoadConfig(cCtx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(cCtx.String(ConfigFileFlag.Name))
	if err != nil {
		return nil, err
	}

	if cCtx.IsSet(AdminFlag.Name) {
		admin, err := interfaces.NewAccountIDFromHex(cCtx.String(AdminFlag.Name))
		if err != nil {
			return nil, err
		}
		cfg.Admin = admin
	}
	if cCtx.IsSet(CheckpointStorageFlag.Name) {
		cfg.CheckpointStorageURIs = cCtx.StringSlice(CheckpointStorageFlag.Name)
	}
	if cCtx.IsSet(CheckpointIntervalFlag.Name) {
		cfg.CheckpointInterval = cCtx.Duration(CheckpointIntervalFlag.Name)
	}
	if cCtx.IsSet(CheckpointHeadFileFlag.Name) {
		cfg.CheckpointHeadFile = cCtx.String(CheckpointHeadFileFlag.Name)
	}
	if cCtx.IsSet(RateLimitFlag.Name) {
		cfg.RateLimitPerSecond = cCtx.Float64(RateLimitFlag.Name)
	}
	if cCtx.IsSet(RateLimitBurstFlag.Name) {
		cfg.RateLimitBurst = cCtx.Int(RateLimitBurstFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, cfg *config.Config) *api.HTTPServerConfig {
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
		MaxClockSkew:             cCtx.Duration(MaxClockSkewFlag.Name),
		RateLimitPerSecond:       cfg.RateLimitPerSecond,
		RateLimitBurst:           cfg.RateLimitBurst,
	}
}

var ConfigFileFlag = &cli.StringFlag{
	Name:    "config",
	EnvVars: []string{"REGISTRY_CONFIG"},
	Usage:   "YAML config file with admin, limits, genesis chains and checkpoint settings",
}

var AdminFlag = &cli.StringFlag{
	Name:    "admin",
	EnvVars: []string{"REGISTRY_ADMIN"},
	Usage:   "account allowed to manage the chain directory, overrides the config file",
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	EnvVars: []string{"REGISTRY_LISTEN_ADDR"},
	Usage:   "address to listen on for API",
}

var CheckpointStorageFlag = &cli.StringSliceFlag{
	Name:    "checkpoint-storage",
	EnvVars: []string{"REGISTRY_CHECKPOINT_STORAGE"},
	Usage:   "storage URI for state checkpoints (file://, s3://, ipfs://, vault://), repeatable",
}

var CheckpointIntervalFlag = &cli.DurationFlag{
	Name:  "checkpoint-interval",
	Value: 5 * time.Minute,
	Usage: "interval between state checkpoints",
}

var CheckpointHeadFileFlag = &cli.StringFlag{
	Name:  "checkpoint-head-file",
	Value: "checkpoint.head",
	Usage: "local file recording the latest checkpoint",
}

var RateLimitFlag = &cli.Float64Flag{
	Name:  "rate-limit",
	Value: 10,
	Usage: "requests per second allowed per caller, 0 disables rate limiting",
}

var RateLimitBurstFlag = &cli.IntFlag{
	Name:  "rate-limit-burst",
	Value: 20,
	Usage: "request burst allowed per caller",
}

var MaxClockSkewFlag = &cli.DurationFlag{
	Name:  "max-clock-skew",
	Value: api.DefaultMaxClockSkew,
	Usage: "accepted distance between a signed request's timestamp and the server clock",
}

var EventLogCapacityFlag = &cli.IntFlag{
	Name:  "event-log-capacity",
	Value: 100000,
	Usage: "number of events kept for the event feed, 0 keeps all",
}

var ServerAddrFlag = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:8080",
	EnvVars: []string{"REGISTRY_SERVER_ADDR"},
	Usage:   "registry API address",
}

var KeyFileFlag = &cli.StringFlag{
	Name:    "key-file",
	EnvVars: []string{"REGISTRY_KEY_FILE"},
	Usage:   "file with the hex-encoded secp256k1 key used to sign requests",
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

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics, empty disables metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
