package dataset

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/YuminosukeSato/stopcast/pkg/errors"
	"github.com/YuminosukeSato/stopcast/pkg/log"
)

// Loader resolves the dataset source: the local path when it is set and
// exists, the remote URL otherwise.
type Loader struct {
	path   string
	url    string
	client *http.Client
	quiet  bool
	logger log.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for the remote download.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithTimeout bounds the remote download. 0 keeps the client's setting.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			c := *l.client
			c.Timeout = d
			l.client = &c
		}
	}
}

// WithQuiet hides the download progress bar.
func WithQuiet(quiet bool) LoaderOption {
	return func(l *Loader) {
		l.quiet = quiet
	}
}

// WithLogger sets the logger for source resolution messages.
func WithLogger(logger log.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader for the given local path (may be empty) and
// remote URL.
func NewLoader(path, url string, opts ...LoaderOption) *Loader {
	l := &Loader{
		path:   path,
		url:    url,
		client: &http.Client{},
		logger: log.GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(log.ComponentKey, "dataset", log.OperationKey, log.OperationLoad)
	return l
}

// Load reads and parses the dataset. When no source can be read it fails
// with a DataUnavailableError naming every source tried; a source that is
// read but malformed fails with the ValidationError from Parse.
func (l *Loader) Load(ctx context.Context) (*Table, error) {
	var (
		tried   []string
		lastErr error
	)

	if l.path != "" {
		tried = append(tried, l.path)
		data, err := l.readLocal()
		if err == nil {
			return l.parse(l.path, data)
		}
		lastErr = err
		l.logger.Debug("local dataset not readable, falling back to remote",
			log.SourceKey, l.path, log.ErrAttr(err))
	}

	if l.url != "" {
		tried = append(tried, l.url)
		data, err := l.download(ctx)
		if err == nil {
			return l.parse(l.url, data)
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no dataset source configured")
	}
	return nil, errors.NewDataUnavailableError(tried, lastErr)
}

func (l *Loader) readLocal() ([]byte, error) {
	if _, err := os.Stat(l.path); err != nil {
		return nil, errors.Wrapf(err, "stat %s", l.path)
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", l.path)
	}
	return data, nil
}

func (l *Loader) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", l.url)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", l.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("GET %s: unexpected status %d", l.url, resp.StatusCode)
	}

	var bar *progressbar.ProgressBar
	if l.quiet {
		bar = progressbar.DefaultBytesSilent(resp.ContentLength, "downloading dataset")
	} else {
		bar = progressbar.DefaultBytes(resp.ContentLength, "downloading dataset")
	}
	pbReader := progressbar.NewReader(resp.Body, bar)
	data, err := io.ReadAll(&pbReader)
	_ = bar.Finish()
	if err != nil {
		return nil, errors.Wrapf(err, "read body of %s", l.url)
	}
	return data, nil
}

func (l *Loader) parse(source string, data []byte) (*Table, error) {
	table, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", source)
	}
	l.logger.Info("dataset loaded",
		log.SourceKey, source,
		log.DataSizeKey, len(data),
		log.SamplesKey, len(table.Timestamps),
		log.StopsKey, len(table.Stops),
	)
	return table, nil
}
