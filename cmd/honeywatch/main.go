package main

import "github.com/vietddude/honeywatch/internal/cli"

func main() {
	cli.Execute()
}
