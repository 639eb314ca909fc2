// Command hashpass prints a bcrypt hash for a password, for seeding accounts
// by hand.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/pkg/auth"
)

func main() {
	_ = godotenv.Load()

	cost := flag.Int("cost", envCost(), "bcrypt cost (defaults to BCRYPT_COST)")
	strict := flag.Bool("strict", false, "enforce the account password policy")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: hashpass [-cost N] [-strict] <password>  (reads stdin when omitted)")
		flag.PrintDefaults()
	}
	flag.Parse()

	password, err := readPassword(flag.Arg(0))
	if err != nil {
		logrus.WithError(err).Fatal("failed to read password")
	}

	passwords := auth.NewPasswordManager(&config.Config{
		Security: config.SecurityConfig{BcryptCost: *cost},
	})

	var hash string
	if *strict {
		hash, err = passwords.HashPassword(password)
	} else {
		hash, err = passwords.Hash(password)
	}
	if err != nil {
		logrus.WithError(err).Fatal("failed to hash password")
	}

	if err := passwords.VerifyPassword(password, hash); err != nil {
		logrus.WithError(err).Fatal("hash verification failed")
	}
	fmt.Println(hash)
}

func envCost() int {
	if v, err := strconv.Atoi(os.Getenv("BCRYPT_COST")); err == nil {
		return v
	}
	return 12
}

func readPassword(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("no password given: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
