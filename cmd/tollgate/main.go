// Command tollgate runs the quota and rate-limit gateway in front of an
// OpenAI-compatible completion API.
package main

func main() {
	Execute()
}
