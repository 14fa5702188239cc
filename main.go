package main

import (
	"os"

	"github.com/xoppmerge/xoppmerge/cmd"
)

var version = "dev"

func main() {
	cmd.Version = version
	os.Exit(cmd.Main(os.Args))
}
