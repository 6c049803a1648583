package main

import (
	"fmt"
	"os"

	"github.com/jan/streamchat/internal/client"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: detect-platform <url-or-handle> [more...]")
		fmt.Println("\nExample:")
		fmt.Println("  detect-platform https://kick.com/chips dQw4w9WgXcQ somestreamer")
		os.Exit(1)
	}

	failed := false
	for _, arg := range os.Args[1:] {
		platform, err := client.Detect(arg)
		if err != nil {
			fmt.Printf("%s: %v\n", arg, err)
			failed = true
			continue
		}
		fmt.Printf("%s: %s\n", arg, platform)
	}
	if failed {
		os.Exit(1)
	}
}
