package main

import "github.com/replaykit/replaykit/cmd"

func main() {
	cmd.Execute()
}
