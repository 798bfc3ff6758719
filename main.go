package main

import "github.com/renlord/bitcoin-txodump/cmd/txodump"

func main() {
	cmd.Execute()
}
