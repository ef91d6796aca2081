// Command labelpair inspects, creates and rewrites label files for image pairs.
package main

func main() {
	Execute()
}
