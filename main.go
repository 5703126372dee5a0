package main

import "manifest_fetcher/internal/cli"

func main() {
	cli.Execute()
}
