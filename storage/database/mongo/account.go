package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shuleapp/shule/core/account"
)

type accountRepository struct {
	db *mongo.Database
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *mongo.Database) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) collection(role string) *mongo.Collection {
	if role == account.RoleTeacher {
		return repo.db.Collection(teacherCollection)
	}
	return repo.db.Collection(studentCollection)
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, role, email string, excluded ...account.Account) error {
	filter := bson.M{"email": email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, acct := range excluded {
			ids = append(ids, acct.ID)
		}
		filter["_id"] = bson.M{"$nin": ids}
	}

	n, err := repo.collection(role).CountDocuments(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "counting accounts by email")
	}
	if n > 0 {
		return account.ErrEmailExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if _, err := repo.collection(acct.Role).InsertOne(ctx, acct); err != nil {
		if isDuplicateKeyError(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acct, nil
}

func (repo *accountRepository) GetAccountByID(ctx context.Context, role, id string) (account.Account, error) {
	return repo.findOne(ctx, role, bson.M{"_id": id})
}

func (repo *accountRepository) GetAccountByEmail(ctx context.Context, role, email string) (account.Account, error) {
	return repo.findOne(ctx, role, bson.M{"email": email})
}

func (repo *accountRepository) findOne(ctx context.Context, role string, filter bson.M) (account.Account, error) {
	var acct account.Account
	if err := repo.collection(role).FindOne(ctx, filter).Decode(&acct); err != nil {
		if err == mongo.ErrNoDocuments {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, errors.Wrap(err, "finding account")
	}
	acct.Role = role // implied by the collection, not persisted
	return acct, nil
}

func (repo *accountRepository) QueryStudents(ctx context.Context) ([]account.Account, error) {
	cur, err := repo.collection(account.RoleStudent).Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	defer cur.Close(ctx)

	students := make([]account.Account, 0)
	for cur.Next(ctx) {
		var acct account.Account
		if err := cur.Decode(&acct); err != nil {
			return nil, errors.Wrap(err, "decoding student")
		}
		acct.Role = account.RoleStudent
		students = append(students, acct)
	}
	return students, errors.Wrap(cur.Err(), "iterating students")
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	res, err := repo.collection(acct.Role).ReplaceOne(ctx, bson.M{"_id": acct.ID}, acct)
	if err != nil {
		if isDuplicateKeyError(err) {
			return account.Account{}, account.ErrEmailExists
		}
		return account.Account{}, errors.Wrap(err, "replacing account")
	}
	if res.MatchedCount == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return acct, nil
}

func (repo *accountRepository) DeleteStudent(ctx context.Context, id string) error {
	res, err := repo.collection(account.RoleStudent).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if res.DeletedCount == 0 {
		return account.ErrNotFound
	}
	return nil
}

// isDuplicateKeyError reports whether err is a unique index violation (code 11000).
func isDuplicateKeyError(err error) bool {
	var wErr mongo.WriteException
	if errors.As(err, &wErr) {
		for _, we := range wErr.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	var bwErr mongo.BulkWriteException
	if errors.As(err, &bwErr) {
		for _, we := range bwErr.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	return false
}
