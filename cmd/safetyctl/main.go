package main

import "github.com/oshokin/safety-relay/cmd/safetyctl/cmd"

func main() {
	cmd.Execute()
}
