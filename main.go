package main

import "github.com/microarena/duelcore/cmd"

func main() {
	cmd.Execute()
}
