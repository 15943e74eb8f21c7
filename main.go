package main

import "github.com/crossvenue/opinion-arb/cmd"

func main() {
	cmd.Execute()
}
