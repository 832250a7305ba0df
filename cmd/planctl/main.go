package main

import (
	"log"
)

func main() {
	err := rootCmd.Execute()
	// PersistentPostRunE is skipped when a command fails; close here too.
	// App.Close is idempotent.
	if closeErr := closeApp(rootCmd, nil); err == nil {
		err = closeErr
	}
	if err != nil {
		log.Fatalf("planctl: %v", err)
	}
}
