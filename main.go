package main

import "neospeller/internal/cli"

func main() {
	cli.Execute()
}
