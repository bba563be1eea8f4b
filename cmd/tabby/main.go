// Command tabby drives a tabby-agent process from the command line.
package main

func main() {
	Execute()
}
