package main

import "github.com/MrEthical07/authpipe/cmd/arpctl/cmd"

func main() {
	cmd.Execute()
}
