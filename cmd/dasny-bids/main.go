package main

import "github.com/pfrederiksen/dasny-bids/internal/cli"

func main() {
	cli.Execute()
}
