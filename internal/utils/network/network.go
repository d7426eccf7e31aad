package network

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// NewSecureHTTPClient returns an http.Client with TLS 1.2+ enforced and
// sane connection timeouts. Overall request timeout is left to the server
// side; package downloads can legitimately take a long time.
func NewSecureHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

type ftpBody struct {
	io.ReadCloser
	conn *ftp.ServerConn
}

func (b *ftpBody) Close() error {
	err := b.ReadCloser.Close()
	if quitErr := b.conn.Quit(); err == nil {
		err = quitErr
	}
	return err
}

// Get fetches rawURL and returns the response body. HTTP(S) and anonymous
// passive-mode FTP are supported; any other scheme is an error. Non-2xx
// HTTP responses are reported as errors.
func Get(rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL %s: %w", rawURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return httpGet(rawURL)
	case "ftp":
		return ftpGet(u)
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q in %s", u.Scheme, rawURL)
	}
}

func httpGet(rawURL string) (io.ReadCloser, error) {
	client := NewSecureHTTPClient()
	resp, err := client.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: bad status: %s", rawURL, resp.Status)
	}
	return resp.Body, nil
}

// NameList returns the entry names of an FTP directory URL, one per entry.
// FTP servers have no HTML index page, so directory listings go through
// NLST instead of a page fetch.
func NameList(rawURL string) ([]string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL %s: %w", rawURL, err)
	}
	if strings.ToLower(u.Scheme) != "ftp" {
		return nil, fmt.Errorf("NameList requires an ftp URL, got %s", rawURL)
	}

	host := u.Host
	if u.Port() == "" {
		host += ":21"
	}
	conn, err := ftp.Dial(host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("dialing ftp host %s: %w", host, err)
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("anonymous login to %s: %w", host, err)
	}
	names, err := conn.NameList(u.Path)
	if err != nil {
		return nil, fmt.Errorf("listing %s on %s: %w", u.Path, host, err)
	}
	return names, nil
}

func ftpGet(u *url.URL) (io.ReadCloser, error) {
	host := u.Host
	if u.Port() == "" {
		host += ":21"
	}

	// jlaffaye/ftp transfers in passive mode (EPSV/PASV) by default.
	conn, err := ftp.Dial(host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("dialing ftp host %s: %w", host, err)
	}
	if err := conn.Login("anonymous", "anonymous"); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("anonymous login to %s: %w", host, err)
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("retrieving %s from %s: %w", u.Path, host, err)
	}
	return &ftpBody{ReadCloser: resp, conn: conn}, nil
}
