package main

import "github.com/ftpr-metrics/devlake-bot/cmd"

func main() {
	cmd.Execute()
}
