package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cosmossdk.io/log"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum"
)

const (
	// EnvPrefix is the prefix of environment variables overriding flags, e.g. ETHLC_HOME.
	EnvPrefix = "ETHLC"

	flagHome        = "home"
	flagLogLevel    = "log-level"
	flagLogFormat   = "log-format"
	flagTrace       = "trace"
	flagDBBackend   = "db-backend"
	flagHostChainID = "host-chain-id"
	flagHostHeight  = "host-height"
	flagHostTime    = "host-time"
	flagChecksum    = "checksum"

	logFormatJSON  = "json"
	logFormatPlain = "plain"
)

// DefaultHome is the directory holding config.toml and the client databases.
var DefaultHome = os.ExpandEnv("$HOME/.ethlc")

// app is the state shared by the commands of one invocation.
type app struct {
	v        *viper.Viper
	logger   log.Logger
	contract *ethereum.Contract
}

// NewRootCmd returns the ethlcd root command. Flags may be set in
// <home>/config.toml or through ETHLC_ prefixed environment variables.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "ethlcd",
		Short:         "Drive the ethereum light client contract against a local client store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().String(flagHome, DefaultHome, "directory for config and data")
	rootCmd.PersistentFlags().String(flagLogLevel, zerolog.InfoLevel.String(), "log level (trace|debug|info|warn|error|disabled)")
	rootCmd.PersistentFlags().String(flagLogFormat, logFormatPlain, "log format (plain|json)")
	rootCmd.PersistentFlags().Bool(flagTrace, false, "trace every client store operation to stderr")
	rootCmd.PersistentFlags().String(flagDBBackend, "goleveldb", "database backend of the client stores")
	rootCmd.PersistentFlags().String(flagHostChainID, "host-1", "chain id of the host, its revision number is used for processed heights")
	rootCmd.PersistentFlags().Uint64(flagHostHeight, 1, "block height of the host")
	rootCmd.PersistentFlags().String(flagHostTime, "", "block time of the host in RFC3339, defaults to now")

	rootCmd.AddCommand(
		a.newInstantiateCmd(),
		a.newUpdateCmd(),
		a.newSudoCmd(),
		a.newQueryCmd(),
		a.newStatusCmd(),
		a.newExportCmd(),
		a.newPruneCmd(),
		a.newMigrateCmd(),
	)

	return rootCmd
}

// load binds the flags, reads the optional config file and builds the
// logger and contract.
func (a *app) load(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	a.v.SetConfigFile(filepath.Join(a.v.GetString(flagHome), "config.toml"))
	if err := a.v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	logger, err := newLogger(cmd, a.v.GetString(flagLogLevel), a.v.GetString(flagLogFormat))
	if err != nil {
		return err
	}

	a.logger = logger
	a.contract = ethereum.NewContract(logger)
	return nil
}

func newLogger(cmd *cobra.Command, level, format string) (log.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := []log.Option{log.LevelOption(lvl)}
	switch format {
	case logFormatJSON:
		opts = append(opts, log.OutputJSONOption())
	case logFormatPlain:
		opts = append(opts, log.ColorOption(false))
	default:
		return nil, errors.New("log format must be plain or json, got " + format)
	}

	return log.NewLogger(cmd.ErrOrStderr(), opts...), nil
}
