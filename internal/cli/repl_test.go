package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
	args     [][]string
	failOn   string
}

func (f *fakeExec) hit(name string, args ...string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	if name == f.failOn {
		return common.ErrInvalidCredentials
	}
	return nil
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Signup(context.Context) error {
	return f.hit("signup")
}
func (f *fakeExec) Login(context.Context) error {
	if err := f.hit("login"); err != nil {
		return err
	}
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.hit("logout")
}
func (f *fakeExec) Profile(context.Context) error        { return f.hit("profile") }
func (f *fakeExec) EditProfile(context.Context) error    { return f.hit("edit") }
func (f *fakeExec) ChangePassword(context.Context) error { return f.hit("password") }
func (f *fakeExec) SocialLinks(context.Context) error    { return f.hit("links") }
func (f *fakeExec) ShowCart(context.Context) error       { return f.hit("cart") }
func (f *fakeExec) AddToCart(context.Context) error      { return f.hit("add") }
func (f *fakeExec) RemoveFromCart(_ context.Context, args []string) error {
	return f.hit("remove", args...)
}
func (f *fakeExec) SetQuantity(_ context.Context, args []string) error {
	return f.hit("qty", args...)
}
func (f *fakeExec) ClearCart(context.Context) error   { return f.hit("clear") }
func (f *fakeExec) Backup(context.Context) error      { return f.hit("backup") }
func (f *fakeExec) ListBackups(context.Context) error { return f.hit("backups") }
func (f *fakeExec) Restore(_ context.Context, args []string) error {
	return f.hit("restore", args...)
}

func capturePrint(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	out := capturePrint(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"signup",
		"login",
		"help",
		"",
		"add",
		"cart",
		"qty 7 3",
		"rm 7",
		"clear",
		"profile",
		"edit",
		"password",
		"links",
		"backup",
		"backups",
		"restore snap.json",
		"logout",
		"foobar",
		"exit",
		"login",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "guest" }, bufio.NewScanner(input))

	assert.Equal(t, []string{
		"signup", "login", "add", "cart", "qty", "remove", "clear", "profile",
		"edit", "password", "links", "backup", "backups", "restore", "logout",
	}, exec.calls)
	assert.Equal(t, []string{"7", "3"}, exec.args[4])
	assert.Equal(t, []string{"7"}, exec.args[5])
	assert.Equal(t, []string{"snap.json"}, exec.args[13])

	assert.Contains(t, *out, guestHelp)
	assert.Contains(t, *out, userHelp)
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Contains(t, *out, "atelier guest > ")
	assert.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_ReportsErrorsAndContinues(t *testing.T) {
	out := capturePrint(t)

	exec := &fakeExec{failOn: "login"}
	input := strings.NewReader("login\ncart\n")
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"login", "cart"}, exec.calls)
	assert.False(t, exec.loggedIn)
	assert.Contains(t, *out, "error: wrong password")
}

func TestRunREPL_StopsAtEOF(t *testing.T) {
	capturePrint(t)
	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("")))
	assert.Empty(t, exec.calls)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{common.ErrNoSuchAccount, "no account with that email"},
		{fmt.Errorf("wrap: %w", common.ErrDuplicateEmail), "that email is already registered"},
		{common.ErrUpdateWithoutSession, "log in first"},
		{fmt.Errorf("%w: rm <id>", errUsage), "usage: rm <id>"},
		{errors.New("disk full"), "disk full"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describe(tt.err))
	}
}
