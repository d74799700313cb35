package dummydb

import (
	"sync"

	"github.com/shuleapp/shule/core/account"
)

// DB is an in-memory store used in tests and local development. It mirrors
// the role-partitioned collections of the real document store.
type DB struct {
	students *accountTable
	teachers *accountTable
}

type accountTable struct {
	sync.RWMutex
	rows map[string]*account.Account
}

func Open() (*DB, error) {
	return &DB{
		students: &accountTable{rows: make(map[string]*account.Account)},
		teachers: &accountTable{rows: make(map[string]*account.Account)},
	}, nil
}
