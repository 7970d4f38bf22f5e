package main

import (
	"github.com/effective-security/toolagents/agents"
	"github.com/effective-security/toolagents/driver"
)

func main() {
	driver.Main(agents.MustGet(agents.EmailAgent))
}
