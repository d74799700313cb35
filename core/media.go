package core

import "io"

// MediaService is any service that can store and remove uploaded media files.
// Save returns the public URL the stored file is reachable under.
type MediaService interface {
	Save(name string, r io.Reader) (string, error)
	Delete(url string) error
}
