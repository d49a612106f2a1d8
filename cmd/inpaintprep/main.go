package main

import "inpaintprep/internal/cli"

func main() {
	cli.Main()
}
