// Command memctl demonstrates the recycling allocator and the linked stack
// built on it.
package main

func main() {
	execute()
}
