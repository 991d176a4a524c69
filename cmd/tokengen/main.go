// Command tokengen issues bearer tokens for vendors and suppliers.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/polkiloo/fulfillment/internal/config"
	"github.com/polkiloo/fulfillment/internal/domain/model"
	"github.com/polkiloo/fulfillment/internal/pkg/auth"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.LoadEnv()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	role := fs.String("role", string(model.RoleVendor), "vendor or supplier")
	id := fs.String("id", "", "vendor or supplier id")
	ttl := fs.Duration("ttl", 0, "token lifetime, 24h when zero")
	secret := fs.String("auth-secret", cfg.AuthSecret, "signing secret")
	if err := fs.Parse(args); err != nil {
		return err
	}

	strategy := auth.NewHMACStrategy(*secret, auth.Options{TTL: *ttl})
	token, err := strategy.IssueToken(model.Actor{ID: *id, Role: model.Role(*role)})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
