package listing

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
)

const (
	anonymousUser     = "anonymous"
	anonymousPassword = "anonymous"
	defaultFTPPort    = "21"
)

// FTPConn is the subset of *ftp.ServerConn the lister drives.
type FTPConn interface {
	Login(user, password string) error
	ChangeDir(path string) error
	List(path string) ([]*ftp.Entry, error)
	Quit() error
}

// DialFunc opens an FTP control connection to addr (host:port).
type DialFunc func(ctx context.Context, addr string, timeout time.Duration) (FTPConn, error)

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (FTPConn, error) {
	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// FTPLister lists directories of anonymous FTP sites.
type FTPLister struct {
	dial    DialFunc
	timeout time.Duration
}

// NewFTPLister builds an FTP lister; a nil dial uses jlaffaye/ftp.
func NewFTPLister(timeout time.Duration, dial DialFunc) *FTPLister {
	if timeout <= 0 {
		timeout = defaultFTPTimeout
	}
	if dial == nil {
		dial = dialFTP
	}
	return &FTPLister{dial: dial, timeout: timeout}
}

func (l *FTPLister) Type() string { return SiteTypeFTP }

// List lists the directory named by the site's ftp:// source URL.
func (l *FTPLister) List(ctx context.Context, site Site) ([]domain.Entry, error) {
	if !strings.EqualFold(site.Type, SiteTypeFTP) {
		return nil, fmt.Errorf("ftp lister received incompatible site type %q", site.Type)
	}
	host, dir, err := site.ftpLocation()
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.ID, err)
	}
	return l.ListDir(ctx, site.ID, host, dir)
}

// ListDir logs in anonymously to host, changes into dir (when non-empty)
// and returns its entries in server order.
func (l *FTPLister) ListDir(ctx context.Context, siteID, host, dir string) (entries []domain.Entry, err error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("ftp host is empty")
	}

	conn, err := l.dial(ctx, withDefaultPort(host, defaultFTPPort), l.timeout)
	if err != nil {
		return nil, fmt.Errorf("dial ftp %s: %w", host, err)
	}
	defer func() {
		if qerr := conn.Quit(); qerr != nil && err == nil {
			err = fmt.Errorf("quit ftp %s: %w", host, qerr)
		}
	}()

	if err := conn.Login(anonymousUser, anonymousPassword); err != nil {
		return nil, fmt.Errorf("login ftp %s: %w", host, err)
	}
	if dir != "" {
		if err := conn.ChangeDir(dir); err != nil {
			return nil, fmt.Errorf("cwd %q on %s: %w", dir, host, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := conn.List("")
	if err != nil {
		return nil, fmt.Errorf("list %q on %s: %w", dir, host, err)
	}

	entries = make([]domain.Entry, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		if item == nil || isPseudoEntry(item.Name) {
			continue
		}
		if _, dup := seen[item.Name]; dup {
			continue
		}
		seen[item.Name] = struct{}{}

		entry := newEntry(siteID, item.Name, ftpURL(host, dir, item.Name), item.Type == ftp.EntryTypeFolder)
		entry.Size = int64(item.Size)
		entry.ModifiedAt = item.Time
		entries = append(entries, entry)
	}
	return entries, nil
}

// ListFTP lists dir on an anonymous FTP host and returns the entry names
// together with their full ftp:// paths.
func ListFTP(ctx context.Context, host, dir string) ([]string, []string, error) {
	entries, err := NewFTPLister(defaultFTPTimeout, nil).ListDir(ctx, host, host, dir)
	if err != nil {
		return nil, nil, err
	}
	l := domain.NewListing(entries)
	return l.Names, l.Paths, nil
}

func withDefaultPort(host, port string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), port)
}
