package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. *App satisfies it; tests
// use a stub.
type execIface interface {
	isLoggedIn() bool
	Signup(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Profile(ctx context.Context) error
	EditProfile(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	SocialLinks(ctx context.Context) error
	ShowCart(ctx context.Context) error
	AddToCart(ctx context.Context) error
	RemoveFromCart(ctx context.Context, args []string) error
	SetQuantity(ctx context.Context, args []string) error
	ClearCart(ctx context.Context) error
	Backup(ctx context.Context) error
	ListBackups(ctx context.Context) error
	Restore(ctx context.Context, args []string) error
}

const (
	guestHelp = "Available commands: signup, login, cart, add, remove <id>, qty <id> <n>, clear, backup, backups, restore [name], exit"
	userHelp  = "Available commands: profile, edit, password, links, cart, add, remove <id>, qty <id> <n>, clear, logout, backup, backups, restore [name], exit"
)

// runREPL reads commands from scanner until EOF or "exit"/"quit". The prompt
// carries statusFn's output. Handler errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("atelier %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(userHelp)
			} else {
				printlnFn(guestHelp)
			}

		case "signup", "register":
			err = a.Signup(ctx)

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "profile", "me":
			err = a.Profile(ctx)

		case "edit":
			err = a.EditProfile(ctx)

		case "password":
			err = a.ChangePassword(ctx)

		case "links":
			err = a.SocialLinks(ctx)

		case "cart", "c":
			err = a.ShowCart(ctx)

		case "add":
			err = a.AddToCart(ctx)

		case "remove", "rm":
			err = a.RemoveFromCart(ctx, args)

		case "qty":
			err = a.SetQuantity(ctx, args)

		case "clear":
			err = a.ClearCart(ctx)

		case "backup":
			err = a.Backup(ctx)

		case "backups":
			err = a.ListBackups(ctx)

		case "restore":
			err = a.Restore(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("error:", describe(err))
		}
	}
}
