package main

import "github.com/zippy1981/gunicorn/internal/cli"

func main() {
	_ = cli.Execute()
}
