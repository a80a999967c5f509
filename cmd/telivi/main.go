// Package main is the entry point for the telivi terminal client.
package main

import "github.com/telivi-ai/knowledge-assistant/internal/commands"

func main() {
	commands.Execute()
}
