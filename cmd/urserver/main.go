package main

import (
	"github.com/urnet/gameserver/internal/cli"
)

func main() {
	cli.Execute()
}
