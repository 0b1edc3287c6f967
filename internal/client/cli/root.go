package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

func (a *App) Root(ctx context.Context) {
	fmt.Println("syncore CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	a.Login(ctx)

	for {
		fmt.Printf("syncore %s> ", a.status(ctx))
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: report, note, list, pending, sync, syncup, syncdown, status, logout, exit")
			} else {
				fmt.Println("Available commands: login, status, exit")
			}

		case "login":
			a.Login(ctx)
		case "logout":
			a.session = nil
			fmt.Println("Logged out")

		case "report":
			a.addReport(ctx)
		case "note":
			a.addNote(ctx)
		case "list":
			a.list(ctx)
		case "pending":
			a.pending(ctx)

		case "sync":
			a.runSync(ctx, a.engine.SyncFull)
		case "syncup":
			a.runSync(ctx, a.engine.SyncUpload)
		case "syncdown":
			a.runSync(ctx, a.engine.SyncDownload)

		case "status":
			a.showStatus(ctx)

		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Println("Unknown command:", parts[0])
		}
	}
}
