package main

import "streamdown/cmd"

func main() {
	cmd.Execute()
}
