package main

import (
	"fmt"
	"log"
	"os"

	"github.com/coursebook/scopedauth/migrate"
)

func main() {
	logger := log.New(os.Stdout, "[migrate] ", log.LstdFlags)
	if err := migrate.RunFromEnv(logger); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("migrate completed successfully")
}
