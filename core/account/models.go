package account

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shuleapp/shule/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

const (
	MinAge  = 18
	MinMark = 0
	MaxMark = 100
)

// defaultSubjectNames is the subject set seeded on every new student account.
var defaultSubjectNames = []string{
	"Mathematics",
	"Science",
	"English",
	"History",
	"Religious Studies",
	"Language",
	"Information Technology",
	"Civics",
	"Literature",
}

// Subject is a named academic topic with a mark, owned by a student account.
type Subject struct {
	ID   string `json:"_id" bson:"_id"`
	Name string `json:"name" bson:"name"`
	Mark int    `json:"mark" bson:"mark"`
}

// DefaultSubjects returns a freshly-identified default subject set, all at mark 0.
func DefaultSubjects() []Subject {
	subjects := make([]Subject, 0, len(defaultSubjectNames))
	for _, name := range defaultSubjectNames {
		subjects = append(subjects, Subject{ID: uuid.New().String(), Name: name})
	}
	return subjects
}

// Account is a persisted student or teacher identity record.
// Role is the discriminant: student-only fields (Age, ProfilePicture, Subjects)
// are zero-valued on teacher accounts and omitted from their JSON form.
type Account struct {
	ID           string `json:"_id" bson:"_id"`
	FirstName    string `json:"firstName" bson:"firstName"`
	LastName     string `json:"lastName" bson:"lastName"`
	Email        string `json:"email" bson:"email"`
	PasswordHash []byte `json:"-" bson:"password"`
	Role         string `json:"role" bson:"-"` // implied by the backing collection

	// student-only
	Age            int       `json:"age,omitempty" bson:"age,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty" bson:"profilePicture,omitempty"`
	Subjects       []Subject `json:"subjects,omitempty" bson:"subjects,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"` // UTC
}

// SetPassword replaces the stored hash with a salted bcrypt hash of pwd.
func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// CheckPassword compares pwd against the stored hash.
func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsStudent() bool { return a.Role == RoleStudent }
func (a *Account) IsTeacher() bool { return a.Role == RoleTeacher }

// Subject returns the subject with the given identity, if present.
func (a *Account) Subject(id string) (Subject, bool) {
	for _, s := range a.Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

// NewStudent contains information needed to register a new student account.
type NewStudent struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email_strict"`
	Password  string `json:"password" validate:"required"`
	Age       int    `json:"age" validate:"required,gte=18"`
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, RoleStudent, ns.Email)
}

// NewTeacher contains information needed to register a new teacher account.
type NewTeacher struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email_strict"`
	Password  string `json:"password" validate:"required"`
}

func (nt *NewTeacher) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nt.FirstName = core.CleanString(nt.FirstName)
	nt.LastName = core.CleanString(nt.LastName)
	nt.Email = core.CleanString(nt.Email, true /* lower */)

	if err := validate.Struct(nt); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, RoleTeacher, nt.Email)
}

// Login carries the credentials submitted on either login endpoint.
type Login struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (l *Login) Validate(validate *validator.Validate) error {
	l.Email = core.CleanString(l.Email, true /* lower */)
	return validate.Struct(l)
}

// UpdateProfile defines the whitelisted fields an existing account may change.
// Zero-valued fields keep their current value; Password is re-hashed only
// when a new plaintext is supplied.
type UpdateProfile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"omitempty,email_strict"`
	Age       *int   `json:"age" validate:"omitempty,gte=18"`
	Password  string `json:"password"`
}

func (up *UpdateProfile) Validate(ctx context.Context, orig Account, validate *validator.Validate, svc *Service) error {
	up.FirstName = core.CleanString(up.FirstName)
	up.LastName = core.CleanString(up.LastName)
	up.Email = core.CleanString(up.Email, true /* lower */)

	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.Email != "" && up.Email != orig.Email {
		return svc.CheckEmailUniqueness(ctx, orig.Role, up.Email, orig)
	}
	return nil
}

// MarkPatch sets the mark of one existing subject.
type MarkPatch struct {
	ID   string `json:"_id" validate:"required"`
	Mark *int   `json:"mark" validate:"required"`
}

// UpdateStudent is the teacher-administration patch: profile fields plus
// subject mark replacement by identity.
type UpdateStudent struct {
	UpdateProfile
	Subjects []MarkPatch `json:"subjects"`
}

// RegisterValidators hooks the account-specific validation tags and struct
// rules into the given validator instance.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	registerValidators(validate, translator)
}
