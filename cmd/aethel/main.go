// Package main is the entry point for the aethel CLI.
package main

func main() {
	Execute()
}
