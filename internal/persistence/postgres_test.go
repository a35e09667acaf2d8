package persistence

import (
	"context"
	"testing"
)

func TestPostgresPingWithoutPool(t *testing.T) {
	p := &Postgres{Pool: nil}
	if err := p.Ping(context.Background()); err == nil {
		t.Fatal("expected an error when no pool is configured")
	}

	var nilPg *Postgres
	if err := nilPg.Ping(context.Background()); err == nil {
		t.Fatal("expected an error on a nil wrapper")
	}
}

func TestRedisPingWithoutClient(t *testing.T) {
	r := &Redis{Client: nil}
	if err := r.Ping(context.Background()); err == nil {
		t.Fatal("expected an error when no client is configured")
	}
}
