package main

import "sidecar-sync/cmd"

func main() {
	cmd.Execute()
}
