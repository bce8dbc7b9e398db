package main

import "ykcfg/cmd"

func main() {
	cmd.Execute()
}
