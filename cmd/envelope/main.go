package main

import "github.com/danielpatrickdp/safety-envelope/go-controller/internal/cli"

func main() {
	cli.Execute()
}
