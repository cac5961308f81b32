package main

import (
	"os"

	"PaymentReminderBot/cmd/paybot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
