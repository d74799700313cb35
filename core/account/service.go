package account

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/shuleapp/shule/core"
)

var (
	// errors
	ErrNotFound           = errors.New("account not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSubjectNotFound    = errors.New("subject not found")
)

type (
	// Repository is the persistence contract for accounts. Email uniqueness
	// is enforced per role-partition; implementations must back the
	// check-then-act registration sequence with a storage-level unique index.
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, role, email string, excluded ...Account) error
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		GetAccountByID(ctx context.Context, role, id string) (Account, error)
		GetAccountByEmail(ctx context.Context, role, email string) (Account, error)
		QueryStudents(ctx context.Context) ([]Account, error)
		UpdateAccount(ctx context.Context, acct Account) (Account, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	// Service owns account records and their mutation rules: validation,
	// hash-if-changed, then persist. Token issuance is delegated to the
	// TokenService, welcome emails are fire-and-forget.
	Service struct {
		conf   *core.Config
		repo   Repository
		tokens *TokenService
		mail   core.EmailService
	}
)

func NewService(conf *core.Config, repo Repository, tokens *TokenService, mailSvc core.EmailService) *Service {
	return &Service{
		conf:   conf,
		repo:   repo,
		tokens: tokens,
		mail:   mailSvc,
	}
}

// CheckEmailUniqueness verifies that no other account in the role-partition
// owns the email; accounts in excluded are skipped (self-updates).
func (svc *Service) CheckEmailUniqueness(ctx context.Context, role, email string, excluded ...Account) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, role, email, excluded...); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// RegisterStudent creates a student account seeded with the default subject
// set and returns it along with a fresh bearer token.
func (svc *Service) RegisterStudent(ctx context.Context, ns NewStudent) (Account, string, error) {
	now := time.Now().UTC()
	acct := Account{
		ID:        uuid.New().String(),
		FirstName: ns.FirstName,
		LastName:  ns.LastName,
		Email:     ns.Email,
		Role:      RoleStudent,
		Age:       ns.Age,
		Subjects:  DefaultSubjects(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acct.SetPassword(ns.Password); err != nil {
		return Account{}, "", err
	}

	acct, err := svc.repo.CreateAccount(ctx, acct)
	if err != nil {
		return Account{}, "", err
	}

	svc.sendWelcomeEmail(acct)

	token, err := svc.tokens.Issue(acct)
	if err != nil {
		return Account{}, "", err
	}
	return acct, token, nil
}

// RegisterTeacher creates a teacher account and returns it along with a
// fresh bearer token.
func (svc *Service) RegisterTeacher(ctx context.Context, nt NewTeacher) (Account, string, error) {
	now := time.Now().UTC()
	acct := Account{
		ID:        uuid.New().String(),
		FirstName: nt.FirstName,
		LastName:  nt.LastName,
		Email:     nt.Email,
		Role:      RoleTeacher,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acct.SetPassword(nt.Password); err != nil {
		return Account{}, "", err
	}

	acct, err := svc.repo.CreateAccount(ctx, acct)
	if err != nil {
		return Account{}, "", err
	}

	svc.sendWelcomeEmail(acct)

	token, err := svc.tokens.Issue(acct)
	if err != nil {
		return Account{}, "", err
	}
	return acct, token, nil
}

// Authenticate looks an account up by email within the role-partition and
// compares the submitted password against the stored hash.
func (svc *Service) Authenticate(ctx context.Context, role, email, password string) (Account, string, error) {
	acct, err := svc.repo.GetAccountByEmail(ctx, role, core.CleanString(email, true /* lower */))
	if err != nil {
		return Account{}, "", err
	}
	if err := acct.CheckPassword(password); err != nil {
		return Account{}, "", ErrInvalidCredentials
	}
	token, err := svc.tokens.Issue(acct)
	if err != nil {
		return Account{}, "", err
	}
	return acct, token, nil
}

func (svc *Service) GetByID(ctx context.Context, role, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, role, id)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccountByID(ctx, RoleStudent, id)
}

func (svc *Service) QueryStudents(ctx context.Context) ([]Account, error) {
	return svc.repo.QueryStudents(ctx)
}

// UpdateProfile applies the whitelisted fields onto the account. The secret
// is re-hashed only when the patch carries a new plaintext; unrelated
// updates leave the stored hash untouched.
func (svc *Service) UpdateProfile(ctx context.Context, role, id string, up UpdateProfile) (Account, error) {
	acct, err := svc.repo.GetAccountByID(ctx, role, id)
	if err != nil {
		return Account{}, err
	}
	applyProfile(&acct, up)
	if up.Password != "" {
		if err := acct.SetPassword(up.Password); err != nil {
			return Account{}, err
		}
	}
	acct.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acct)
}

// UpdateMarks patches subject marks on a student account. The update is
// all-or-nothing: every patch is validated against the current subject set
// before any of them is applied.
func (svc *Service) UpdateMarks(ctx context.Context, id string, patches []MarkPatch) (Account, error) {
	acct, err := svc.repo.GetAccountByID(ctx, RoleStudent, id)
	if err != nil {
		return Account{}, err
	}
	if err := applyMarkPatches(&acct, patches); err != nil {
		return Account{}, err
	}
	acct.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acct)
}

// UpdateStudent is the teacher-administration update: profile whitelist plus
// subject mark replacement by identity, with the same all-or-nothing rule.
func (svc *Service) UpdateStudent(ctx context.Context, id string, us UpdateStudent) (Account, error) {
	acct, err := svc.repo.GetAccountByID(ctx, RoleStudent, id)
	if err != nil {
		return Account{}, err
	}
	applyProfile(&acct, us.UpdateProfile)
	if us.Password != "" {
		if err := acct.SetPassword(us.Password); err != nil {
			return Account{}, err
		}
	}
	if err := applyMarkPatches(&acct, us.Subjects); err != nil {
		return Account{}, err
	}
	acct.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAccount(ctx, acct)
}

// SetProfilePicture stores the new picture URL and returns the updated
// account along with the previous URL so the caller can clean it up.
func (svc *Service) SetProfilePicture(ctx context.Context, id, url string) (Account, string, error) {
	acct, err := svc.repo.GetAccountByID(ctx, RoleStudent, id)
	if err != nil {
		return Account{}, "", err
	}
	old := acct.ProfilePicture
	acct.ProfilePicture = url
	acct.UpdatedAt = time.Now().UTC()
	acct, err = svc.repo.UpdateAccount(ctx, acct)
	if err != nil {
		return Account{}, "", err
	}
	return acct, old, nil
}

func (svc *Service) DeleteStudent(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}

func applyProfile(acct *Account, up UpdateProfile) {
	if up.FirstName != "" {
		acct.FirstName = up.FirstName
	}
	if up.LastName != "" {
		acct.LastName = up.LastName
	}
	if up.Email != "" {
		acct.Email = up.Email
	}
	if up.Age != nil && acct.IsStudent() {
		acct.Age = *up.Age
	}
}

func applyMarkPatches(acct *Account, patches []MarkPatch) error {
	// validate everything up front; a single bad patch fails the whole update
	idx := make(map[string]int, len(acct.Subjects))
	for i, s := range acct.Subjects {
		idx[s.ID] = i
	}
	for _, p := range patches {
		if _, ok := idx[p.ID]; !ok {
			return ErrSubjectNotFound
		}
		if p.Mark == nil {
			return core.NewValidationError(nil, core.FieldError{Field: "mark", Error: "a numeric mark is required"})
		}
		if *p.Mark < MinMark || *p.Mark > MaxMark {
			return core.NewValidationError(nil, core.FieldError{Field: "mark", Error: "mark must be between 0 and 100"})
		}
	}
	for _, p := range patches {
		acct.Subjects[idx[p.ID]].Mark = *p.Mark
	}
	return nil
}

func (svc *Service) sendWelcomeEmail(acct Account) {
	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acct.FirstName + " " + acct.LastName, Address: acct.Email}},
		Subject:      "Welcome to " + svc.conf.AppName,
		TemplateName: "welcome",
		TemplateData: struct{ FirstName string }{acct.FirstName},
	})
}
