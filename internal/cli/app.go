package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/atelier/internal/app"
	"github.com/dmitrijs2005/atelier/internal/backup"
	"github.com/dmitrijs2005/atelier/internal/common"
)

// App is the interactive front end over one app container.
type App struct {
	core   *app.App
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(core *app.App, in io.Reader, out io.Writer) *App {
	return &App{core: core, reader: bufio.NewReader(in), out: out}
}

// Run starts the REPL and returns when the input ends or the user exits.
func (a *App) Run(ctx context.Context) {
	printlnFn("Atelier CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(lineReader{a.reader}))
}

func (a *App) isLoggedIn() bool {
	return a.core.IsAuthenticated()
}

// status renders the prompt prefix, e.g. "ada@x.io (client) | cart 2 items 45.00".
func (a *App) status() string {
	who := "guest"
	if u := a.core.UserInfo(); u != nil {
		who = fmt.Sprintf("%s (%s)", u.Email, u.UserType)
	}
	n := 0
	for _, l := range a.core.CartItems() {
		n += l.Quantity
	}
	return fmt.Sprintf("%s | cart %d items %.2f", who, n, a.core.CartTotal())
}

// lineReader hands the scanner one line per Read, so the command scanner and
// the prompt helpers can share one buffered reader.
type lineReader struct {
	r *bufio.Reader
}

func (l lineReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, err := l.r.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		p[n] = b
		n++
		if b == '\n' {
			break
		}
	}
	return n, nil
}

var errUsage = errors.New("usage")

func describe(err error) string {
	switch {
	case errors.Is(err, errUsage):
		return err.Error()
	case errors.Is(err, common.ErrNoSuchAccount):
		return "no account with that email"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "wrong password"
	case errors.Is(err, common.ErrDuplicateEmail):
		return "that email is already registered"
	case errors.Is(err, common.ErrUpdateWithoutSession):
		return "log in first"
	case errors.Is(err, common.ErrAlreadyAuthenticated):
		return "already logged in, log out first"
	case errors.Is(err, app.ErrBackupDisabled):
		return "backups are disabled (set backup.driver to file or s3)"
	case errors.Is(err, backup.ErrSnapshotNotFound):
		return "no such snapshot"
	}
	return err.Error()
}
