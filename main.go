package main

import "github.com/emaland/spotinfer/cmd"

func main() {
	cmd.Execute()
}
