package main

import (
	"os"

	"github.com/mattsolo1/kmail2maildir/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
