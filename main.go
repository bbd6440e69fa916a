package main

import (
	"TrackVault/cmd"
)

func main() {
	cmd.Execute()
}
