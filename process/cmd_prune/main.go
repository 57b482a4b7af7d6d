package main

import "numcap/process/sanitize"

func main() {
	sanitize.Run()
}
