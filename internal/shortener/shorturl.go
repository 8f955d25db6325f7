package shortener

import (
	"net/url"
	"path"
	"time"
)

// ShortID is the short identifier naming a Mapping.
type ShortID string

// Mapping links a short identifier to the original URL. Mappings are
// immutable once inserted.
type Mapping struct {
	ShortID     ShortID
	URL         string
	CreatedAt   time.Time
	RequesterIP string
}

// Origin is where the create request was received; short URLs are built under it.
type Origin struct {
	Scheme string
	Host   string
	Path   string
}

// ShortURL returns scheme://host/path/<id>.
func (o Origin) ShortURL(id ShortID) string {
	scheme := o.Scheme
	if scheme == "" {
		scheme = "https"
	}

	u := url.URL{
		Scheme: scheme,
		Host:   o.Host,
		Path:   path.Join("/", o.Path, string(id)),
	}

	return u.String()
}
