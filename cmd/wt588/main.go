package main

import "github.com/OpenTraceLab/OpenTraceWT588/cmd/wt588/cmd"

func main() {
	cmd.Execute()
}
