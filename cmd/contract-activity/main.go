package main

import "github.com/Layr-Labs/contract-activity/cmd"

func main() {
	cmd.Execute()
}
