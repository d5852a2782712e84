package main

import "tuition-server-go/cmd"

func main() {
	cmd.Execute()
}
