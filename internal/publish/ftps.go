package publish

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"

	"github.com/jlaffaye/ftp"

	"github.com/JonMunkholm/dbexport/internal/config"
)

// ftpsRemote is a Remote over an explicit-TLS FTP session. The data
// channel is protected (PBSZ 0, PROT P) as part of login.
type ftpsRemote struct {
	conn *ftp.ServerConn
}

// DialFTPS returns a Dialer for the configured FTPS endpoint.
func DialFTPS(cfg *config.FTPConfig) Dialer {
	return func(ctx context.Context) (Remote, error) {
		tlsConfig := &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			// Servers such as Pure-FTPd require the data channel to resume
			// the control channel's TLS session.
			ClientSessionCache: tls.NewLRUClientSessionCache(0),
		}

		conn, err := ftp.Dial(cfg.Addr(),
			ftp.DialWithContext(ctx),
			ftp.DialWithTimeout(cfg.ConnectTimeout),
			ftp.DialWithExplicitTLS(tlsConfig),
		)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", cfg.Addr(), err)
		}
		if err := conn.Login(cfg.User, cfg.Password); err != nil {
			conn.Quit()
			return nil, fmt.Errorf("login %s@%s: %w", cfg.User, cfg.Addr(), err)
		}
		return &ftpsRemote{conn: conn}, nil
	}
}

func (r *ftpsRemote) ChangeDir(dir string) error { return r.conn.ChangeDir(dir) }

func (r *ftpsRemote) MakeDir(dir string) error { return r.conn.MakeDir(dir) }

func (r *ftpsRemote) Delete(name string) error { return r.conn.Delete(name) }

func (r *ftpsRemote) Store(name string, data io.Reader) error { return r.conn.Stor(name, data) }

func (r *ftpsRemote) Rename(from, to string) error { return r.conn.Rename(from, to) }

func (r *ftpsRemote) FileSize(name string) (int64, error) { return r.conn.FileSize(name) }

func (r *ftpsRemote) List(name string) ([]string, error) {
	entries, err := r.conn.List(name)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s %d %s", e.Name, e.Size, e.Time.Format("2006-01-02 15:04")))
	}
	return lines, nil
}

func (r *ftpsRemote) Retrieve(name string) (io.ReadCloser, error) { return r.conn.Retr(name) }

func (r *ftpsRemote) Quit() error { return r.conn.Quit() }
