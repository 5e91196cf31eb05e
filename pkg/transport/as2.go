package transport

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"go.mozilla.org/pkcs7"

	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/models"
)

// CompanyCredentials is the tenant's own AS2 identity: the certificate it
// signs with and the matching private key, both PEM.
type CompanyCredentials struct {
	AS2ID          string
	CertificatePEM string
	PrivateKeyPEM  string
}

// CredentialSource resolves the tenant's AS2 identity at send time. The
// exchange service backs it with the settings repository.
type CredentialSource interface {
	AS2Credentials(ctx context.Context, tenantID string) (CompanyCredentials, error)
}

// AS2Channel posts signed (and optionally encrypted) payloads to the
// partner's AS2 endpoint and reads back the synchronous MDN.
type AS2Channel struct {
	client      *http.Client
	credentials CredentialSource
	logger      ectologger.Logger
}

func NewAS2Channel(credentials CredentialSource, timeout time.Duration, logger ectologger.Logger) *AS2Channel {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &AS2Channel{
		client:      &http.Client{Timeout: timeout},
		credentials: credentials,
		logger:      logger,
	}
}

// Send signs the payload with the company key, encrypts it for the partner
// when an encryption algorithm is configured, and POSTs it. Missing crypto
// material or identifiers fail as configuration errors before any network
// I/O happens.
func (c *AS2Channel) Send(ctx context.Context, partner *models.TradingPartner, payload Payload) (*Result, error) {
	cfg := partner.AS2
	if cfg.URL == "" {
		return nil, edierr.New(edierr.KindConfiguration, "partner has no AS2 URL").AddPartner(partner.Code)
	}
	if cfg.PartnerID == "" {
		return nil, edierr.New(edierr.KindConfiguration, "partner has no AS2 identifier").AddPartner(partner.Code)
	}

	creds, err := c.credentials.AS2Credentials(ctx, partner.TenantID)
	if err != nil {
		return nil, edierr.Newf(edierr.KindConfiguration, "resolving AS2 credentials: %w", err).AddPartner(partner.Code)
	}
	if creds.CertificatePEM == "" || creds.PrivateKeyPEM == "" {
		return nil, edierr.New(edierr.KindConfiguration, "tenant AS2 certificate or private key is not configured").AddPartner(partner.Code)
	}

	cert, key, err := parseKeyPair(creds.CertificatePEM, creds.PrivateKeyPEM)
	if err != nil {
		return nil, edierr.Newf(edierr.KindConfiguration, "invalid tenant AS2 key material: %w", err).AddPartner(partner.Code)
	}

	var partnerCert *x509.Certificate
	if cfg.EncryptionAlgorithm != "" {
		if cfg.PartnerCertificate == "" {
			return nil, edierr.New(edierr.KindConfiguration, "encryption requested but partner has no certificate").AddPartner(partner.Code)
		}
		partnerCert, err = parseCertificate(cfg.PartnerCertificate)
		if err != nil {
			return nil, edierr.Newf(edierr.KindConfiguration, "invalid partner certificate: %w", err).AddPartner(partner.Code)
		}
	}

	body, contentType, err := smimeWrap(payload.Content, cert, key, partnerCert, cfg.EncryptionAlgorithm)
	if err != nil {
		return nil, edierr.Newf(edierr.KindTransport, "building S/MIME body: %w", err).AddPartner(partner.Code)
	}

	localID := cfg.LocalID
	if localID == "" {
		localID = creds.AS2ID
	}
	messageID := fmt.Sprintf("<%s@sedge>", uuid.New().String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, edierr.Newf(edierr.KindTransport, "building AS2 request: %w", err).AddPartner(partner.Code)
	}
	req.Header.Set("AS2-Version", "1.2")
	req.Header.Set("AS2-From", localID)
	req.Header.Set("AS2-To", cfg.PartnerID)
	req.Header.Set("Message-ID", messageID)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, payload.Filename))
	req.Header.Set("Subject", "EDI Interchange")
	if cfg.RequestMDN {
		req.Header.Set("Disposition-Notification-To", localID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, edierr.Newf(edierr.KindTransport, "posting to AS2 endpoint: %w", err).AddPartner(partner.Code)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, edierr.Newf(edierr.KindTransport, "AS2 endpoint returned %d", resp.StatusCode).AddPartner(partner.Code)
	}

	result := &Result{MessageID: messageID}
	if cfg.RequestMDN {
		mdn, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err != nil {
			return result, edierr.Newf(edierr.KindTransport, "reading MDN: %w", err).AddPartner(partner.Code)
		}
		result.MDNDisposition = parseMDNDisposition(string(mdn))
		if strings.Contains(strings.ToLower(result.MDNDisposition), "failed") ||
			strings.Contains(strings.ToLower(result.MDNDisposition), "error") {
			return result, edierr.Newf(edierr.KindTransport, "partner MDN reported failure: %s", result.MDNDisposition).AddPartner(partner.Code)
		}
	}

	c.logger.WithContext(ctx).
		WithField("partner", partner.Code).
		WithField("message_id", messageID).
		Infof("AS2 send accepted by %s", cfg.URL)

	return result, nil
}

// Test probes the endpoint with a HEAD request. Any response at all means
// the endpoint is reachable; AS2 servers commonly reject non-POST methods.
func (c *AS2Channel) Test(ctx context.Context, partner *models.TradingPartner) error {
	if partner.AS2.URL == "" {
		return edierr.New(edierr.KindConfiguration, "partner has no AS2 URL").AddPartner(partner.Code)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, partner.AS2.URL, nil)
	if err != nil {
		return edierr.Newf(edierr.KindTransport, "building probe request: %w", err).AddPartner(partner.Code)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return edierr.Newf(edierr.KindTransport, "AS2 endpoint unreachable: %w", err).AddPartner(partner.Code)
	}
	resp.Body.Close()
	return nil
}

// smimeWrap signs content and, when partnerCert is set, encrypts the
// signed blob for the partner. Returns the body and its MIME type.
func smimeWrap(content []byte, cert *x509.Certificate, key crypto.PrivateKey, partnerCert *x509.Certificate, encryptionAlg string) ([]byte, string, error) {
	signed, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, "", fmt.Errorf("initializing signed data: %w", err)
	}
	if err := signed.AddSigner(cert, key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, "", fmt.Errorf("signing payload: %w", err)
	}
	body, err := signed.Finish()
	if err != nil {
		return nil, "", fmt.Errorf("finalizing signature: %w", err)
	}

	if partnerCert == nil {
		return body, `application/pkcs7-mime; smime-type=signed-data`, nil
	}

	// pkcs7 selects the cipher through a package global, so concurrent
	// sends to partners with different algorithms must serialize here.
	encryptMu.Lock()
	pkcs7.ContentEncryptionAlgorithm = encryptionAlgorithmID(encryptionAlg)
	encrypted, err := pkcs7.Encrypt(body, []*x509.Certificate{partnerCert})
	encryptMu.Unlock()
	if err != nil {
		return nil, "", fmt.Errorf("encrypting payload: %w", err)
	}
	return encrypted, `application/pkcs7-mime; smime-type=enveloped-data`, nil
}

var encryptMu sync.Mutex

func encryptionAlgorithmID(name string) int {
	switch strings.ToLower(name) {
	case "aes128", "aes128-gcm":
		return pkcs7.EncryptionAlgorithmAES128GCM
	case "aes256", "aes256-gcm":
		return pkcs7.EncryptionAlgorithmAES256GCM
	default:
		return pkcs7.EncryptionAlgorithmDESCBC
	}
}

// parseMDNDisposition pulls the Disposition line out of a synchronous MDN
// body. MDNs are multipart/report, but the disposition line is all the
// state machine records, so a line scan suffices.
func parseMDNDisposition(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(line), "disposition:") {
			return strings.TrimSpace(line[len("disposition:"):])
		}
	}
	return ""
}

func parseCertificate(certPEM string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	return x509.ParseCertificate(block.Bytes)
}

func parseKeyPair(certPEM, keyPEM string) (*x509.Certificate, any, error) {
	cert, err := parseCertificate(certPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing certificate: %w", err)
	}

	block, _ := pem.Decode([]byte(keyPEM))
	if block == nil {
		return nil, nil, fmt.Errorf("no PEM block found in private key")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return cert, key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return cert, key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return cert, key, nil
	}
	return nil, nil, fmt.Errorf("private key is not PKCS#8, PKCS#1 or EC")
}
