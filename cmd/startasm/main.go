// Command startasm starts the StartASM interactive interpreter shell.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"startasm/internal/driver"
	"startasm/internal/session"
)

func main() {
	compilerImage := flag.String("compiler-image", "startasm/compiler:latest", "container image implementing the StartASM compiler")
	configPath := flag.String("config", defaultConfigPath(), "path to the session state file")
	flag.Parse()

	d := driver.New(*compilerImage, os.Stdout, os.Stdin)
	s := session.New(d, *configPath, os.Stdout, os.Stdin)

	if err := s.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "startasm: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(dir, "startasm", "config.json")
}
