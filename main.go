package main

import "resource-exporter/cmd"

func main() {
	cmd.Execute()
}
