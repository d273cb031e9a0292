package main

import "github.com/ValentinKolb/kvmux/cmd"

func main() {
	cmd.Execute()
}
