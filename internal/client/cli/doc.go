// Package cli implements alertctl, the command-line client for the alert
// registry.
//
// Commands:
//
//	alertctl register [-u name]
//	alertctl login [-u name]
//	alertctl logout
//	alertctl alerts list [--user u] [--ioc-type t] [--ioc-data d] [--days n]
//	alertctl alerts get <id>
//	alertctl alerts create --source s --user u [--description d] [--date ts] [--ioc type=data ...]
//	alertctl alerts create --file payload.json
//
// Passwords are read from the terminal without echo. login stores the
// bearer token in the configured token file (mode 0600); the alert commands
// send it and logout removes it.
package cli
