package main

import "github.com/pders01/tret/cmd"

func main() {
	cmd.Execute()
}
