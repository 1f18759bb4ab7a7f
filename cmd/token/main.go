// Command token mints a bearer token for the user registry API.
//
//	JWT_SECRET=... token -sub ana@ufrj.br -role editor -ttl 8h
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/usuarios/registry/internal/core/domain"
	"github.com/usuarios/registry/internal/core/service"
)

type cliFlags struct {
	Subject string
	Role    string
	TTL     time.Duration
	Secret  string
}

func main() {
	if err := run(os.Args[1:], os.Getenv("JWT_SECRET"), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, envSecret string, out io.Writer) error {
	var flags cliFlags

	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.StringVar(&flags.Subject, "sub", "", "token subject, e.g. the operator's email")
	fs.StringVar(&flags.Role, "role", domain.RoleViewer, "admin, editor or viewer")
	fs.DurationVar(&flags.TTL, "ttl", 24*time.Hour, "token lifetime")
	fs.StringVar(&flags.Secret, "secret", envSecret, "signing secret (defaults to $JWT_SECRET)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	token, err := service.NewTokenIssuer(flags.Secret, flags.TTL).Issue(flags.Subject, flags.Role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
