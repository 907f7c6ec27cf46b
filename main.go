package main

import "github.com/killallgit/castero/cmd"

func main() {
	cmd.Execute()
}
