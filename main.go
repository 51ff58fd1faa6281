package main

import "github.com/studyboard/studyverify/cmd"

func main() {
	cmd.Execute()
}
