package dummydb

import (
	"context"

	"github.com/shuleapp/shule/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) table(role string) *accountTable {
	if role == account.RoleTeacher {
		return repo.db.teachers
	}
	return repo.db.students
}

func (repo *accountRepository) CheckEmailUniqueness(_ context.Context, role, email string, excluded ...account.Account) error {
	tbl := repo.table(role)
	tbl.RLock()
	defer tbl.RUnlock()

	for _, acct := range tbl.rows {
		if acct.Email == email && !isExcluded(*acct, excluded) {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	tbl := repo.table(acct.Role)
	tbl.Lock()
	defer tbl.Unlock()

	// the unique index stands in even when the uniqueness pre-check is raced
	for _, existing := range tbl.rows {
		if existing.Email == acct.Email {
			return account.Account{}, account.ErrEmailExists
		}
	}
	tbl.rows[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) GetAccountByID(_ context.Context, role, id string) (account.Account, error) {
	tbl := repo.table(role)
	tbl.RLock()
	defer tbl.RUnlock()

	if acct, ok := tbl.rows[id]; ok {
		return *acct, nil
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) GetAccountByEmail(_ context.Context, role, email string) (account.Account, error) {
	tbl := repo.table(role)
	tbl.RLock()
	defer tbl.RUnlock()

	for _, acct := range tbl.rows {
		if acct.Email == email {
			return *acct, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) QueryStudents(_ context.Context) ([]account.Account, error) {
	tbl := repo.db.students
	tbl.RLock()
	defer tbl.RUnlock()

	students := make([]account.Account, 0, len(tbl.rows))
	for _, acct := range tbl.rows {
		students = append(students, *acct)
	}
	return students, nil
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	tbl := repo.table(acct.Role)
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.rows[acct.ID]; !ok {
		return account.Account{}, account.ErrNotFound
	}
	tbl.rows[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) DeleteStudent(_ context.Context, id string) error {
	tbl := repo.db.students
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.rows[id]; !ok {
		return account.ErrNotFound
	}
	delete(tbl.rows, id)
	return nil
}

func isExcluded(acct account.Account, excluded []account.Account) bool {
	for _, ex := range excluded {
		if ex.ID == acct.ID {
			return true
		}
	}
	return false
}
