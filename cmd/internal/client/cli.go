package client

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is swapped in tests so they never touch a terminal.
var readPassword = term.ReadPassword

// stdinIsTerminal reports whether passwords can be read without echo.
var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// CLI dispatches pedeai-cli subcommands against one Client.
type CLI struct {
	Client *Client
	In     *bufio.Reader
	Out    io.Writer
}

const usage = `usage: pedeai-cli <command> [flags]

commands:
  register -email E -name N -cpf-cnpj C -phone P -address A
  login    -email E
  logout
  whoami   [-server]
  open     <path>
`

// Run executes one command. Passwords are never taken from flags.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.Out, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "register":
		return c.register(ctx, args[1:])
	case "login":
		return c.login(ctx, args[1:])
	case "logout":
		if err := c.Client.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.Out, "Signed out.")
		return nil
	case "whoami":
		return c.whoami(ctx, args[1:])
	case "open":
		return c.open(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(c.Out, usage)
		return nil
	default:
		fmt.Fprint(c.Out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (c *CLI) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.Out)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "full name")
	phone := fs.String("phone", "", "phone, at least 10 characters")
	doc := fs.String("cpf-cnpj", "", "CPF or CNPJ with check digits")
	address := fs.String("address", "", "address, at least 5 characters")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := c.password()
	if err != nil {
		return err
	}

	u, err := c.Client.Register(ctx, RegisterInput{
		Email:    *email,
		Password: pw,
		FullName: *name,
		Phone:    *phone,
		CPFCNPJ:  *doc,
		Address:  *address,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Registered %s (%s). Run `pedeai-cli login -email %s` to sign in.\n", u.Email, u.ID, u.Email)
	return nil
}

func (c *CLI) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.Out)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := c.password()
	if err != nil {
		return err
	}

	res, err := c.Client.Login(ctx, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Signed in as %s.\n", res.User.Email)
	return nil
}

func (c *CLI) whoami(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(c.Out)
	server := fs.Bool("server", false, "ask the server instead of verifying locally")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *server {
		u, err := c.Client.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%s <%s> plan=%s\n", u.FullName, u.Email, u.Plan)
		return nil
	}

	st, err := c.Client.Whoami(ctx)
	if err != nil {
		return err
	}
	if st.User == nil {
		fmt.Fprintln(c.Out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(c.Out, "%s <%s> role=%s\n", st.User.FullName, st.User.Email, st.User.Role)
	return nil
}

func (c *CLI) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("open: expected exactly one path")
	}

	resp, err := c.Client.Get(ctx, args[0])
	if err != nil {
		return err
	}
	defer drain(resp)

	if loc := resp.Header.Get("Location"); resp.StatusCode >= 300 && resp.StatusCode < 400 {
		fmt.Fprintf(c.Out, "%d %s -> %s\n", resp.StatusCode, http.StatusText(resp.StatusCode), loc)
		return nil
	}

	fmt.Fprintf(c.Out, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	_, err = io.Copy(c.Out, io.LimitReader(resp.Body, 1<<20))
	return err
}

// password reads without echo on a terminal, or one line from In otherwise (pipes, tests).
func (c *CLI) password() (string, error) {
	fmt.Fprint(c.Out, "Password: ")
	if stdinIsTerminal() {
		pw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(c.Out)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := c.In.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(c.Out)
	return strings.TrimRight(line, "\r\n"), nil
}
