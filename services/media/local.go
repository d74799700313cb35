package mediasvc

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/shuleapp/shule/core"
)

// localService stores uploaded files on the local disk under conf.Media.Root;
// the API server serves that directory statically under conf.Media.BaseURL.
type localService struct {
	root    string
	baseURL string
}

var _ core.MediaService = (*localService)(nil)

func NewLocalService(conf *core.Config) (*localService, error) {
	if err := os.MkdirAll(conf.Media.Root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media root")
	}
	return &localService{
		root:    conf.Media.Root,
		baseURL: strings.TrimRight(conf.Media.BaseURL, "/"),
	}, nil
}

func (svc *localService) Save(name string, r io.Reader) (string, error) {
	name = filepath.Base(name) // never let a client path escape the root
	f, err := os.Create(filepath.Join(svc.root, name))
	if err != nil {
		return "", errors.Wrap(err, "creating media file")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", errors.Wrap(err, "writing media file")
	}
	return svc.baseURL + "/" + name, nil
}

func (svc *localService) Delete(url string) error {
	if !strings.HasPrefix(url, svc.baseURL+"/") {
		return nil // not ours (e.g. an externally hosted image)
	}
	name := filepath.Base(strings.TrimPrefix(url, svc.baseURL+"/"))
	if err := os.Remove(filepath.Join(svc.root, name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing media file")
	}
	return nil
}
