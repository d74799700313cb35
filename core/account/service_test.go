package account_test

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/account"
	emailsvc "github.com/shuleapp/shule/services/email"
	dummydb "github.com/shuleapp/shule/storage/database/dummy"
)

var ctx = context.Background()

func testConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		AppName:          "Shule",
		SecretKey:        "s3cret",
		WorkDir:          core.Getwd(),
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Shule", Address: "noreply@localhost"},
		Server:           core.ServerConfig{JWTExpirationDelta: time.Hour},
	}
}

func setup(t *testing.T) (*account.Service, account.Repository) {
	t.Helper()

	conf := testConfig()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	repo := dummydb.NewAccountRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	emailsvc.ClearSentMessages()

	return account.NewService(conf, repo, account.NewTokenService(conf), mailSvc), repo
}

func registerStudent(t *testing.T, svc *account.Service, email string) account.Account {
	t.Helper()

	acct, _, err := svc.RegisterStudent(ctx, account.NewStudent{
		FirstName: "Awa",
		LastName:  "Diop",
		Email:     email,
		Password:  "LePassword",
		Age:       20,
	})
	if err != nil {
		t.Fatalf("RegisterStudent() failed: %v", err)
	}
	return acct
}

func TestServiceRegisterStudent(t *testing.T) {
	svc, _ := setup(t)

	acct, token, err := svc.RegisterStudent(ctx, account.NewStudent{
		FirstName: "Awa",
		LastName:  "Diop",
		Email:     "awa@test.cd",
		Password:  "LePassword",
		Age:       20,
	})
	if err != nil {
		t.Fatalf("RegisterStudent() failed: %v", err)
	}

	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, account.RoleStudent, acct.Role)
	assert.Len(t, acct.Subjects, 9)
	for _, s := range acct.Subjects {
		assert.Equal(t, 0, s.Mark)
	}
	assert.NotEqual(t, "LePassword", string(acct.PasswordHash))
	assert.NoError(t, acct.CheckPassword("LePassword"))
	assert.False(t, acct.CreatedAt.IsZero())

	// the token must resolve back to the new account
	claims, err := account.NewTokenService(testConfig()).Verify(token)
	if assert.NoError(t, err) {
		assert.Equal(t, acct.ID, claims.Subject)
		assert.Equal(t, account.RoleStudent, claims.Role)
	}

	// a welcome email went out
	if assert.Len(t, emailsvc.SentMessages, 1) {
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, "Welcome to Shule", msg.Subject)
		assert.Equal(t, "awa@test.cd", msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "Hello Awa")
		assert.Contains(t, msg.HTMLContent, "Welcome to Shule")
	}
}

func TestServiceRegisterTeacher(t *testing.T) {
	svc, _ := setup(t)

	acct, token, err := svc.RegisterTeacher(ctx, account.NewTeacher{
		FirstName: "Jim",
		LastName:  "Halpert",
		Email:     "jim@test.cd",
		Password:  "LePassword",
	})
	if err != nil {
		t.Fatalf("RegisterTeacher() failed: %v", err)
	}

	assert.Equal(t, account.RoleTeacher, acct.Role)
	assert.Empty(t, acct.Subjects)
	assert.Zero(t, acct.Age)
	assert.NotEmpty(t, token)
}

func TestServiceRegisterDuplicateEmail(t *testing.T) {
	svc, repo := setup(t)
	orig := registerStudent(t, svc, "awa@test.cd")

	_, _, err := svc.RegisterStudent(ctx, account.NewStudent{
		FirstName: "Evil",
		LastName:  "Twin",
		Email:     "awa@test.cd",
		Password:  "An0therPwd",
		Age:       25,
	})
	assert.Equal(t, account.ErrEmailExists, err)

	// the original record is untouched
	got, err := repo.GetAccountByEmail(ctx, account.RoleStudent, "awa@test.cd")
	if assert.NoError(t, err) {
		assert.Equal(t, orig.ID, got.ID)
		assert.Equal(t, "Awa", got.FirstName)
	}

	// the same email is free in the other role-partition
	_, _, err = svc.RegisterTeacher(ctx, account.NewTeacher{
		FirstName: "Awa",
		LastName:  "Diop",
		Email:     "awa@test.cd",
		Password:  "LePassword",
	})
	assert.NoError(t, err)
}

func TestServiceAuthenticate(t *testing.T) {
	svc, _ := setup(t)
	acct := registerStudent(t, svc, "awa@test.cd")

	got, token, err := svc.Authenticate(ctx, account.RoleStudent, "awa@test.cd", "LePassword")
	if assert.NoError(t, err) {
		assert.Equal(t, acct.ID, got.ID)
		assert.NotEmpty(t, token)
	}

	// email lookup is case-insensitive
	_, _, err = svc.Authenticate(ctx, account.RoleStudent, "  AWA@Test.CD ", "LePassword")
	assert.NoError(t, err)

	_, _, err = svc.Authenticate(ctx, account.RoleStudent, "awa@test.cd", "wr0ngPwd")
	assert.Equal(t, account.ErrInvalidCredentials, err)

	_, _, err = svc.Authenticate(ctx, account.RoleStudent, "ghost@test.cd", "LePassword")
	assert.Equal(t, account.ErrNotFound, err)
}

func TestServiceUpdateProfile(t *testing.T) {
	svc, _ := setup(t)
	acct := registerStudent(t, svc, "awa@test.cd")
	age := 21

	updated, err := svc.UpdateProfile(ctx, account.RoleStudent, acct.ID, account.UpdateProfile{
		FirstName: "Aminata",
		Age:       &age,
	})
	if assert.NoError(t, err) {
		assert.Equal(t, "Aminata", updated.FirstName)
		assert.Equal(t, "Diop", updated.LastName) // unchanged
		assert.Equal(t, 21, updated.Age)
	}

	// no password in the patch; the stored hash must be byte-identical
	assert.Equal(t, string(acct.PasswordHash), string(updated.PasswordHash))

	updated, err = svc.UpdateProfile(ctx, account.RoleStudent, acct.ID, account.UpdateProfile{Password: "NewPassword"})
	if assert.NoError(t, err) {
		assert.NotEqual(t, string(acct.PasswordHash), string(updated.PasswordHash))
		assert.NoError(t, updated.CheckPassword("NewPassword"))
	}

	_, err = svc.UpdateProfile(ctx, account.RoleStudent, "ghost", account.UpdateProfile{FirstName: "X"})
	assert.Equal(t, account.ErrNotFound, err)
}

func TestServiceUpdateMarks(t *testing.T) {
	svc, repo := setup(t)
	acct := registerStudent(t, svc, "awa@test.cd")
	mark85, mark90, mark150 := 85, 90, 150

	updated, err := svc.UpdateMarks(ctx, acct.ID, []account.MarkPatch{
		{ID: acct.Subjects[0].ID, Mark: &mark85},
		{ID: acct.Subjects[3].ID, Mark: &mark90},
	})
	if assert.NoError(t, err) {
		assert.Equal(t, 85, updated.Subjects[0].Mark)
		assert.Equal(t, 90, updated.Subjects[3].Mark)
		assert.Equal(t, 0, updated.Subjects[1].Mark)
	}

	t.Run("unknown subject", func(t *testing.T) {
		_, err := svc.UpdateMarks(ctx, acct.ID, []account.MarkPatch{{ID: "nope", Mark: &mark85}})
		assert.Equal(t, account.ErrSubjectNotFound, err)
	})

	t.Run("mark out of range", func(t *testing.T) {
		_, err := svc.UpdateMarks(ctx, acct.ID, []account.MarkPatch{{ID: acct.Subjects[1].ID, Mark: &mark150}})
		var vErr *core.ValidationError
		if assert.True(t, errors.As(err, &vErr)) {
			assert.Contains(t, vErr.Fields[0].Error, "between 0 and 100")
		}
	})

	t.Run("missing mark", func(t *testing.T) {
		_, err := svc.UpdateMarks(ctx, acct.ID, []account.MarkPatch{{ID: acct.Subjects[1].ID}})
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("all or nothing", func(t *testing.T) {
		_, err := svc.UpdateMarks(ctx, acct.ID, []account.MarkPatch{
			{ID: acct.Subjects[5].ID, Mark: &mark90}, // valid on its own
			{ID: acct.Subjects[6].ID, Mark: &mark150},
		})
		assert.Error(t, err)

		got, err := repo.GetAccountByID(ctx, account.RoleStudent, acct.ID)
		if assert.NoError(t, err) {
			assert.Equal(t, 0, got.Subjects[5].Mark) // the valid patch was not applied either
		}
	})
}

func TestServiceUpdateStudent(t *testing.T) {
	svc, _ := setup(t)
	acct := registerStudent(t, svc, "awa@test.cd")
	mark70 := 70

	updated, err := svc.UpdateStudent(ctx, acct.ID, account.UpdateStudent{
		UpdateProfile: account.UpdateProfile{FirstName: "Binta"},
		Subjects:      []account.MarkPatch{{ID: acct.Subjects[0].ID, Mark: &mark70}},
	})
	if assert.NoError(t, err) {
		assert.Equal(t, "Binta", updated.FirstName)
		assert.Equal(t, 70, updated.Subjects[0].Mark)
	}
}

func TestServiceSetProfilePicture(t *testing.T) {
	svc, _ := setup(t)
	acct := registerStudent(t, svc, "awa@test.cd")

	updated, old, err := svc.SetProfilePicture(ctx, acct.ID, "/media/"+acct.ID+".png")
	if assert.NoError(t, err) {
		assert.Empty(t, old)
		assert.True(t, strings.HasSuffix(updated.ProfilePicture, acct.ID+".png"))
	}

	_, old, err = svc.SetProfilePicture(ctx, acct.ID, "/media/"+acct.ID+".jpg")
	if assert.NoError(t, err) {
		assert.Equal(t, "/media/"+acct.ID+".png", old)
	}
}

func TestServiceDeleteStudent(t *testing.T) {
	svc, _ := setup(t)
	acct := registerStudent(t, svc, "awa@test.cd")

	assert.NoError(t, svc.DeleteStudent(ctx, acct.ID))

	_, err := svc.GetStudent(ctx, acct.ID)
	assert.Equal(t, account.ErrNotFound, err)

	assert.Equal(t, account.ErrNotFound, svc.DeleteStudent(ctx, acct.ID))
}
