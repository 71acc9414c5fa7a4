package backend

import (
	"fmt"

	"github.com/angeloszaimis/blobstream/config"
)

// Handle identifies one member of the backend pool. It is comparable and is
// used as a map key by the workload table and the session cache.
type Handle struct {
	Name string
	URL  string
}

func (h Handle) String() string {
	return h.Name
}

// NewHandle returns a handle after checking both fields are set.
func NewHandle(name, url string) (Handle, error) {
	if name == "" {
		return Handle{}, fmt.Errorf("backend: empty name for %q", url)
	}
	if url == "" {
		return Handle{}, fmt.Errorf("backend: empty url for %q", name)
	}
	return Handle{Name: name, URL: url}, nil
}

// NewPool builds the ordered handle list from configuration. Order is
// preserved; it decides tie breaks during selection.
func NewPool(cfgs []config.BackendConfig) ([]Handle, error) {
	handles := make([]Handle, 0, len(cfgs))
	for _, c := range cfgs {
		h, err := NewHandle(c.Name, c.URL)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}
