package main

import (
	"os"

	"cosmossdk.io/log"

	"github.com/cosmos/ethereum-light-client/modules/light-clients/ethereum/cli"
)

func main() {
	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		log.NewLogger(rootCmd.OutOrStderr()).Error("failure when running ethlcd", "err", err)
		os.Exit(1)
	}
}
