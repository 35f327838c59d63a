package main

import "github.com/JamaalDavis/holochain-rust/internal/cli"

func main() {
	cli.Execute()
}
