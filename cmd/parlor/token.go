package main

import (
	"fmt"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/parlor/internal/auth"
)

const tokenIssuer = "parlor"

// TokenCmd prints a token the server accepts when auth_secret is set.
type TokenCmd struct {
	Secret string        `required:"" env:"PARLOR_AUTH_SECRET" help:"Shared signing secret"`
	ID     string        `arg:"" help:"Participant id"`
	Name   string        `help:"Display name (defaults to the id)"`
	TTL    time.Duration `default:"24h" help:"Token lifetime"`
}

func (c *TokenCmd) Run() error {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	token, err := auth.NewJWTValidator(c.Secret, tokenIssuer, quartz.NewReal()).Issue(c.ID, name, c.TTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Println(token)
	return nil
}
