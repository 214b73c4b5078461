// Command hexcast casts I Ching hexagrams and serves the engine over HTTP and MCP.
package main

func main() {
	Execute()
}
