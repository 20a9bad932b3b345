package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-contest-portal/internal/portalcli"
)

func main() {
	_ = godotenv.Load()
	if err := portalcli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
