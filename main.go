package main

import (
	"github.com/AzielCF/az-pilot/cmd"
)

func main() {
	cmd.Execute()
}
