package main

import "github.com/calmackay/commutecast/cmd"

func main() {
	cmd.Execute()
}
