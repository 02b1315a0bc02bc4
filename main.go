package main

import "github.com/dotcommander/supervisa/cmd"

func main() {
	cmd.Execute()
}
