package main

import "github.com/kokossimo/kokocli/cmd"

func main() {
	cmd.Execute()
}
