package main

import "github.com/alexms1504/trade-assistant/internal/cli"

func main() {
	cli.Execute()
}
