package main

import "github.com/KaramelBytes/healthloom-cli/cmd"

func main() {
	cmd.Execute()
}
