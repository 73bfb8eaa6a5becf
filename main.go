package main

import "github.com/sw33tLie/taxscope/cmd"

func main() {
	cmd.Execute()
}
