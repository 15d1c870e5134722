package main

import "github.com/dgallion1/xmlray/cmd/xmlray/cmd"

func main() {
	cmd.Execute()
}
