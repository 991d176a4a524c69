package auth

import (
	"time"

	"github.com/polkiloo/fulfillment/internal/domain/model"
)

// Strategy issues and verifies bearer tokens that identify an actor.
type Strategy interface {
	IssueToken(actor model.Actor) (string, error)
	ParseToken(token string) (model.Actor, error)
	Name() string
}

type Options struct {
	TTL time.Duration
}
