package main

import (
	"github.com/santiagomed/chef/cli"
)

func main() {
	cli.Execute()
}
