// Command passwd prints a stored form of the shared access password for the
// server's access_password setting.
//
//	passwd [-alg bcrypt|argon2id] [-cost n]
//
// The password is read twice from the terminal without echo.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/passwd"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var (
	errMismatch = errors.New("passwords do not match")
	errEmpty    = errors.New("password is empty")
)

func prompt(w io.Writer, label string) ([]byte, error) {
	fmt.Fprint(w, label)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	return pw, err
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	alg := fs.String("alg", "bcrypt", "hash algorithm: bcrypt or argon2id")
	cost := fs.Int("cost", passwd.DefaultCost, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *alg != "bcrypt" && *alg != "argon2id" {
		return fmt.Errorf("unknown algorithm %q", *alg)
	}

	first, err := prompt(stderr, "New password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(first)

	second, err := prompt(stderr, "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(second)

	if len(first) == 0 {
		return errEmpty
	}
	if string(first) != string(second) {
		return errMismatch
	}

	var stored string
	switch *alg {
	case "argon2id":
		stored = passwd.HashArgon2(string(first), passwd.DefaultArgon2Params)
	default:
		stored, err = passwd.HashBcrypt(string(first), *cost)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(stdout, stored)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "passwd:", err)
		os.Exit(1)
	}
}
