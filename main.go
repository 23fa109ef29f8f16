package main

import "github.com/sigil-lang/sigil/cmd"

func main() {
	cmd.Execute()
}
