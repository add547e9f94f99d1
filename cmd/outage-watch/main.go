package main

import "github.com/oshokin/outage-watch/cmd/outage-watch/cmd"

func main() {
	cmd.Execute()
}
