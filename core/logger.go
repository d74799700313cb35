package core

// Logger is any service that can log application events and report errors.
// Implementations may treat an account.Account argument specially to tag
// the affected person on error reports.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
