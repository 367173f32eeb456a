// Command panel asks a panel of LLM experts and synthesizes their opinions.
package main

func main() {
	Execute()
}
