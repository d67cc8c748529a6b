package main

import "github.com/abdul-hamid-achik/ember/cmd/ember/commands"

func main() {
	commands.Execute()
}
