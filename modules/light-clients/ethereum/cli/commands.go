package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	wasmvmtypes "github.com/CosmWasm/wasmvm/v2/types"
	"github.com/spf13/cobra"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum"
)

const stdinArg = "-"

func (a *app) newInstantiateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instantiate [client-id] [client-state-file] [consensus-state-file]",
		Short: "Create a client from JSON encoded client and consensus states",
		Example: fmt.Sprintf(
			"ethlcd instantiate 08-wasm-0 client_state.json consensus_state.json --%s 0x...", flagChecksum,
		),
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientState, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			consensusState, err := readInput(cmd, args[2])
			if err != nil {
				return err
			}
			checksum, err := hexutil.Decode(a.v.GetString(flagChecksum))
			if err != nil {
				return fmt.Errorf("invalid checksum: %w", err)
			}

			msg, err := json.Marshal(ethereum.InstantiateMessage{
				ClientState:    clientState,
				ConsensusState: consensusState,
				Checksum:       checksum,
			})
			if err != nil {
				return err
			}

			env, err := a.env()
			if err != nil {
				return err
			}

			return a.withClientStore(args[0], func(store wasmvmtypes.KVStore) error {
				_, err := a.contract.Instantiate(env, wasmvmtypes.MessageInfo{}, store, msg)
				return err
			})
		},
	}

	cmd.Flags().String(flagChecksum, "", "hex encoded checksum of the contract code")

	return cmd
}

func (a *app) newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [client-id] [client-message-file]",
		Short: "Update the client with a JSON encoded header",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientMsg, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}

			return a.sudo(cmd, args[0], ethereum.SudoMsg{UpdateState: &ethereum.UpdateStateMsg{ClientMessage: clientMsg}})
		},
	}
}

func (a *app) newSudoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sudo [client-id] [msg-file]",
		Short: "Execute a raw sudo message, use - to read it from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}

			return a.sudoRaw(cmd, args[0], msg)
		},
	}
}

func (a *app) newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query [client-id] [msg-file]",
		Short: "Execute a raw query message, use - to read it from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}

			return a.queryRaw(cmd, args[0], msg)
		},
	}
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [client-id]",
		Short: "Query the status of the client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.query(cmd, args[0], ethereum.QueryMsg{Status: &ethereum.StatusMsg{}})
		},
	}
}

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [client-id]",
		Short: "Export the consensus metadata of the client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.query(cmd, args[0], ethereum.QueryMsg{ExportMetadata: &ethereum.ExportMetadataMsg{}})
		},
	}
}

func (a *app) newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune [client-id]",
		Short: "Remove every expired consensus state except the latest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.env()
			if err != nil {
				return err
			}

			return a.withClientStore(args[0], func(store wasmvmtypes.KVStore) error {
				pruned, err := a.contract.PruneExpiredConsensusStates(env, store)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]int{"pruned": pruned})
			})
		},
	}
}

func (a *app) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [subject-client-id] [substitute-client-id]",
		Short: "Recover a frozen or expired subject client from an active substitute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := json.Marshal(ethereum.SudoMsg{MigrateClientStore: &ethereum.MigrateClientStoreMsg{}})
			if err != nil {
				return err
			}

			env, err := a.env()
			if err != nil {
				return err
			}

			return a.withRecoveryStore(args[0], args[1], func(store wasmvmtypes.KVStore) error {
				resp, err := a.contract.Sudo(env, store, msg)
				if err != nil {
					return err
				}
				return printRaw(cmd, resp.Data)
			})
		},
	}
}

func (a *app) sudo(cmd *cobra.Command, clientID string, msg ethereum.SudoMsg) error {
	bz, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return a.sudoRaw(cmd, clientID, bz)
}

func (a *app) sudoRaw(cmd *cobra.Command, clientID string, msg []byte) error {
	env, err := a.env()
	if err != nil {
		return err
	}

	return a.withClientStore(clientID, func(store wasmvmtypes.KVStore) error {
		resp, err := a.contract.Sudo(env, store, msg)
		if err != nil {
			return err
		}
		return printRaw(cmd, resp.Data)
	})
}

func (a *app) query(cmd *cobra.Command, clientID string, msg ethereum.QueryMsg) error {
	bz, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return a.queryRaw(cmd, clientID, bz)
}

func (a *app) queryRaw(cmd *cobra.Command, clientID string, msg []byte) error {
	env, err := a.env()
	if err != nil {
		return err
	}

	return a.withClientStore(clientID, func(store wasmvmtypes.KVStore) error {
		bz, err := a.contract.Query(env, store, msg)
		if err != nil {
			return err
		}
		return printRaw(cmd, bz)
	})
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == stdinArg {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func printRaw(cmd *cobra.Command, bz []byte) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), string(bz))
	return err
}

func printJSON(cmd *cobra.Command, v any) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return printRaw(cmd, bz)
}
