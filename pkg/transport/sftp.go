package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"path"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/models"
)

// SFTPChannel exchanges documents through a partner-hosted SFTP server.
// Connections are never held open between operations: each send, poll or
// archive dials fresh and closes on return, so a partner restarting its
// server never strands the scheduler.
type SFTPChannel struct {
	dialTimeout time.Duration
	logger      ectologger.Logger
}

func NewSFTPChannel(dialTimeout time.Duration, logger ectologger.Logger) *SFTPChannel {
	if dialTimeout == 0 {
		dialTimeout = 15 * time.Second
	}
	return &SFTPChannel{dialTimeout: dialTimeout, logger: logger}
}

// Send uploads the payload into the partner's outbox directory. The file
// is written under a temporary name and renamed so the partner never
// picks up a half-written document.
func (c *SFTPChannel) Send(ctx context.Context, partner *models.TradingPartner, payload Payload) (*Result, error) {
	conn, client, err := c.connect(partner)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	defer client.Close()

	dir := partner.SFTP.RemoteOutboxDir
	if dir == "" {
		dir = "/outbox"
	}
	final := path.Join(dir, payload.Filename)
	staging := final + ".tmp"

	f, err := client.Create(staging)
	if err != nil {
		return nil, edierr.Newf(edierr.KindTransport, "creating remote file %s: %w", staging, err).AddPartner(partner.Code)
	}
	if _, err := f.Write(payload.Content); err != nil {
		f.Close()
		return nil, edierr.Newf(edierr.KindTransport, "writing remote file %s: %w", staging, err).AddPartner(partner.Code)
	}
	if err := f.Close(); err != nil {
		return nil, edierr.Newf(edierr.KindTransport, "closing remote file %s: %w", staging, err).AddPartner(partner.Code)
	}
	if err := client.PosixRename(staging, final); err != nil {
		return nil, edierr.Newf(edierr.KindTransport, "renaming %s to %s: %w", staging, final, err).AddPartner(partner.Code)
	}

	c.logger.WithContext(ctx).WithField("partner", partner.Code).Infof("Uploaded %s via SFTP", final)
	return &Result{}, nil
}

// Test connects and lists the inbox directory.
func (c *SFTPChannel) Test(ctx context.Context, partner *models.TradingPartner) error {
	conn, client, err := c.connect(partner)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	if _, err := client.ReadDir(c.inboxDir(partner)); err != nil {
		return edierr.Newf(edierr.KindTransport, "listing inbox: %w", err).AddPartner(partner.Code)
	}
	return nil
}

// Poll lists the partner's inbox and downloads every regular file. The
// caller archives each file only after its pipeline run succeeds.
func (c *SFTPChannel) Poll(ctx context.Context, partner *models.TradingPartner) ([]PolledFile, error) {
	conn, client, err := c.connect(partner)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	defer client.Close()

	inbox := c.inboxDir(partner)
	entries, err := client.ReadDir(inbox)
	if err != nil {
		return nil, edierr.Newf(edierr.KindTransport, "listing inbox %s: %w", inbox, err).AddPartner(partner.Code)
	}

	files := make([]PolledFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		remote := path.Join(inbox, entry.Name())

		f, err := client.Open(remote)
		if err != nil {
			return nil, edierr.Newf(edierr.KindTransport, "opening %s: %w", remote, err).AddPartner(partner.Code)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, edierr.Newf(edierr.KindTransport, "downloading %s: %w", remote, err).AddPartner(partner.Code)
		}

		files = append(files, PolledFile{Name: entry.Name(), Content: content})
	}
	return files, nil
}

// Archive moves a processed inbox file into the partner's archive
// directory so the next poll does not pick it up again.
func (c *SFTPChannel) Archive(ctx context.Context, partner *models.TradingPartner, filename string) error {
	conn, client, err := c.connect(partner)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	archiveDir := partner.SFTP.ArchiveDir
	if archiveDir == "" {
		archiveDir = path.Join(c.inboxDir(partner), "archive")
	}
	if err := client.MkdirAll(archiveDir); err != nil {
		return edierr.Newf(edierr.KindTransport, "creating archive dir %s: %w", archiveDir, err).AddPartner(partner.Code)
	}

	src := path.Join(c.inboxDir(partner), filename)
	dst := path.Join(archiveDir, fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102T150405"), filename))
	if err := client.PosixRename(src, dst); err != nil {
		return edierr.Newf(edierr.KindTransport, "archiving %s: %w", src, err).AddPartner(partner.Code)
	}

	c.logger.WithContext(ctx).WithField("partner", partner.Code).Debugf("Archived %s to %s", src, dst)
	return nil
}

func (c *SFTPChannel) inboxDir(partner *models.TradingPartner) string {
	if partner.SFTP.RemoteInboxDir != "" {
		return partner.SFTP.RemoteInboxDir
	}
	return "/inbox"
}

func (c *SFTPChannel) connect(partner *models.TradingPartner) (*ssh.Client, *sftp.Client, error) {
	cfg := partner.SFTP
	if cfg.Host == "" {
		return nil, nil, edierr.New(edierr.KindConfiguration, "partner has no SFTP host").AddPartner(partner.Code)
	}

	auth, err := authMethods(cfg)
	if err != nil {
		return nil, nil, edierr.Newf(edierr.KindConfiguration, "invalid SFTP credentials: %w", err).AddPartner(partner.Code)
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", port))

	sshCfg := &ssh.ClientConfig{
		User: cfg.Username,
		Auth: auth,
		// Partner host keys rotate without notice; the channel trusts
		// transport-level auth instead of pinning.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.dialTimeout,
	}

	conn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, nil, edierr.Newf(edierr.KindTransport, "dialing %s: %w", addr, err).AddPartner(partner.Code)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, nil, edierr.Newf(edierr.KindTransport, "starting SFTP subsystem: %w", err).AddPartner(partner.Code)
	}
	return conn, client, nil
}

func authMethods(cfg models.SFTPConfig) ([]ssh.AuthMethod, error) {
	if cfg.PrivateKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(cfg.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	if cfg.Password != "" {
		return []ssh.AuthMethod{ssh.Password(cfg.Password)}, nil
	}
	return nil, fmt.Errorf("neither password nor private key configured")
}
