// Package ssh runs the rank processes of remote hosts over
// golang.org/x/crypto/ssh.
package ssh

import (
	"context"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/lsds/ncclpg/srcs/go/utils/iostream"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

var dialTimeout = 8 * time.Second

// Config names the remote account. KeyFile defaults to the first of
// ~/.ssh/id_ed25519 and ~/.ssh/id_rsa that exists. Host keys are checked
// against KnownHosts when it is set.
type Config struct {
	User       string
	Host       string
	KeyFile    string
	KnownHosts string
}

func withDefaultPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, "22")
}

func completeConfig(c Config) Config {
	if len(c.User) == 0 {
		if u, err := user.Current(); err == nil {
			c.User = u.Username
		}
	}
	c.Host = withDefaultPort(c.Host)
	return c
}

var defaultKeyFiles = []string{"id_ed25519", "id_rsa"}

func loadKey(file string) (ssh.Signer, error) {
	if len(file) > 0 {
		buf, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return ssh.ParsePrivateKey(buf)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	for _, name := range defaultKeyFiles {
		buf, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return ssh.ParsePrivateKey(buf)
	}
	return nil, errors.Errorf("no key in %s/.ssh", home)
}

func hostKeyCallback(knownHostsFile string) (ssh.HostKeyCallback, error) {
	if len(knownHostsFile) == 0 {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return knownhosts.New(knownHostsFile)
}

// Client is one connection to a host.
type Client struct {
	config Config
	client *ssh.Client
}

func New(cfg Config) (*Client, error) {
	cfg = completeConfig(cfg)
	key, err := loadKey(cfg.KeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "load ssh key")
	}
	hostKey, err := hostKeyCallback(cfg.KnownHosts)
	if err != nil {
		return nil, errors.Wrap(err, "load known hosts")
	}
	client, err := ssh.Dial("tcp", cfg.Host, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(key)},
		HostKeyCallback: hostKey,
		Timeout:         dialTimeout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s@%s", cfg.User, cfg.Host)
	}
	return &Client{config: cfg, client: client}, nil
}

func (c *Client) String() string {
	return c.config.User + "@" + c.config.Host
}

// Watch runs script in a remote shell, streaming its output to the
// redirectors until it exits or ctx is done. Cancelling sends SIGTERM and
// hangs up the pty, which also terminates the remote children.
func (c *Client) Watch(ctx context.Context, script string, redirectors []*iostream.StdWriters) error {
	session, err := c.client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()
	stdout, err := session.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return err
	}
	if err := session.RequestPty("xterm", 80, 40, nil); err != nil {
		return err
	}
	results := iostream.StdReaders{Stdout: stdout, Stderr: stderr}
	streamed := results.Stream(redirectors...)
	if err := session.Start(script); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		streamed.Wait()
		done <- session.Wait()
	}()
	select {
	case err := <-done:
		var exit *ssh.ExitError
		if errors.As(err, &exit) {
			return errors.Errorf("%s: remote command exited with status %d", c, exit.ExitStatus())
		}
		return err
	case <-ctx.Done():
		session.Signal(ssh.SIGTERM)
		session.Close()
		return ctx.Err()
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}
