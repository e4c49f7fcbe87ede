package main

import "deckhand/cmd"

func main() {
	cmd.Execute()
}
