// Command sb is a dev CLI for selectbot maintenance and debugging tasks.
package main

func main() {
	Execute()
}
