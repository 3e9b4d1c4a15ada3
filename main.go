package main

import "github.com/douhashi/better-labels/cmd"

func main() {
	cmd.Execute()
}
