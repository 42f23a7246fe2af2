package main

import "github.com/novinrelay/lead-relay/cmd"

func main() {
	cmd.Execute()
}
