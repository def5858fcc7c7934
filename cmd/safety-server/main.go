package main

import "github.com/oshokin/safety-relay/cmd/safety-server/cmd"

func main() {
	cmd.Execute()
}
