// README: Entry point; delegates to the cobra command tree.
package main

func main() {
	Execute()
}
