package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// selfSignedPEM generates a throwaway keypair for signing tests.
func selfSignedPEM(t *testing.T) (certPEM, keyPEM string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "sedge-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}))
	return certPEM, keyPEM
}

type staticCredentials struct {
	creds CompanyCredentials
}

func (s staticCredentials) AS2Credentials(_ context.Context, _ string) (CompanyCredentials, error) {
	return s.creds, nil
}

func as2Partner(url string) *models.TradingPartner {
	return &models.TradingPartner{
		ID:                  "p-1",
		TenantID:            "t-1",
		Code:                "ACME",
		CommunicationMethod: models.CommMethodAS2,
		Status:              models.PartnerStatusActive,
		AS2: models.AS2Config{
			URL:       url,
			LocalID:   "SEDGE",
			PartnerID: "ACME-AS2",
		},
	}
}

func TestRegistry(t *testing.T) {
	t.Run("should dispatch on communication method", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(models.CommMethodManual, ManualChannel{})

		partner := &models.TradingPartner{Code: "ACME", CommunicationMethod: models.CommMethodManual}
		result, err := registry.Send(context.Background(), partner, Payload{Filename: "doc.edi"})

		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.NoError(t, registry.Test(context.Background(), partner))
	})

	t.Run("should reject unregistered methods as configuration errors", func(t *testing.T) {
		registry := NewRegistry()

		partner := &models.TradingPartner{Code: "ACME", CommunicationMethod: models.CommMethodAS2}
		_, err := registry.Send(context.Background(), partner, Payload{})

		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))
	})
}

func TestAS2Send(t *testing.T) {
	certPEM, keyPEM := selfSignedPEM(t)
	creds := staticCredentials{creds: CompanyCredentials{
		AS2ID:          "SEDGE",
		CertificatePEM: certPEM,
		PrivateKeyPEM:  keyPEM,
	}}

	t.Run("should post signed payload with AS2 headers", func(t *testing.T) {
		var gotHeaders http.Header
		var gotLen int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotHeaders = r.Header.Clone()
			body, _ := io.ReadAll(r.Body)
			gotLen = len(body)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		channel := NewAS2Channel(creds, 5*time.Second, testLogger())
		result, err := channel.Send(context.Background(), as2Partner(server.URL), Payload{
			Filename: "PO-1.edi",
			Content:  []byte("ISA*00*..."),
		})

		require.NoError(t, err)
		assert.NotEmpty(t, result.MessageID)
		assert.Equal(t, "SEDGE", gotHeaders.Get("AS2-From"))
		assert.Equal(t, "ACME-AS2", gotHeaders.Get("AS2-To"))
		assert.Contains(t, gotHeaders.Get("Content-Type"), "pkcs7-mime")
		assert.Greater(t, gotLen, len("ISA*00*..."), "signed body should be larger than the plain payload")
	})

	t.Run("should parse the MDN disposition when one is requested", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Reporting-UA: partner\nDisposition: automatic-action/MDN-sent-automatically; processed\n"))
		}))
		defer server.Close()

		partner := as2Partner(server.URL)
		partner.AS2.RequestMDN = true

		channel := NewAS2Channel(creds, 5*time.Second, testLogger())
		result, err := channel.Send(context.Background(), partner, Payload{Filename: "PO-1.edi", Content: []byte("ISA")})

		require.NoError(t, err)
		assert.Equal(t, "automatic-action/MDN-sent-automatically; processed", result.MDNDisposition)
	})

	t.Run("should fail transport when the MDN reports failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("Disposition: automatic-action/MDN-sent-automatically; failed/failure: signature-mismatch\n"))
		}))
		defer server.Close()

		partner := as2Partner(server.URL)
		partner.AS2.RequestMDN = true

		channel := NewAS2Channel(creds, 5*time.Second, testLogger())
		_, err := channel.Send(context.Background(), partner, Payload{Filename: "PO-1.edi", Content: []byte("ISA")})

		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindTransport))
	})

	t.Run("should fail transport on non-2xx responses", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		channel := NewAS2Channel(creds, 5*time.Second, testLogger())
		_, err := channel.Send(context.Background(), as2Partner(server.URL), Payload{Filename: "x", Content: []byte("ISA")})

		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindTransport))
	})

	t.Run("should reject missing configuration before any network I/O", func(t *testing.T) {
		channel := NewAS2Channel(creds, 5*time.Second, testLogger())

		noURL := as2Partner("")
		_, err := channel.Send(context.Background(), noURL, Payload{})
		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))

		noPartnerID := as2Partner("https://unreachable.invalid")
		noPartnerID.AS2.PartnerID = ""
		_, err = channel.Send(context.Background(), noPartnerID, Payload{})
		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))
	})

	t.Run("should reject missing company key material as configuration", func(t *testing.T) {
		channel := NewAS2Channel(staticCredentials{}, 5*time.Second, testLogger())

		_, err := channel.Send(context.Background(), as2Partner("https://unreachable.invalid"), Payload{})
		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))
	})

	t.Run("should require a partner certificate when encryption is configured", func(t *testing.T) {
		partner := as2Partner("https://unreachable.invalid")
		partner.AS2.EncryptionAlgorithm = "aes256"

		channel := NewAS2Channel(creds, 5*time.Second, testLogger())
		_, err := channel.Send(context.Background(), partner, Payload{Content: []byte("ISA")})

		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))
	})

	t.Run("should encrypt for the partner certificate when configured", func(t *testing.T) {
		partnerCert, _ := selfSignedPEM(t)
		var gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotContentType = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		partner := as2Partner(server.URL)
		partner.AS2.EncryptionAlgorithm = "aes256"
		partner.AS2.PartnerCertificate = partnerCert

		channel := NewAS2Channel(creds, 5*time.Second, testLogger())
		_, err := channel.Send(context.Background(), partner, Payload{Filename: "PO-1.edi", Content: []byte("ISA")})

		require.NoError(t, err)
		assert.Contains(t, gotContentType, "enveloped-data")
	})
}

func TestAS2Test(t *testing.T) {
	t.Run("should accept any response to the HEAD probe", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}))
		defer server.Close()

		channel := NewAS2Channel(staticCredentials{}, 5*time.Second, testLogger())
		assert.NoError(t, channel.Test(context.Background(), as2Partner(server.URL)))
	})

	t.Run("should fail on unreachable endpoints", func(t *testing.T) {
		channel := NewAS2Channel(staticCredentials{}, time.Second, testLogger())

		err := channel.Test(context.Background(), as2Partner("http://127.0.0.1:1"))
		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindTransport))
	})
}

func TestSFTPPreconditions(t *testing.T) {
	t.Run("should reject partners without a host as configuration", func(t *testing.T) {
		channel := NewSFTPChannel(time.Second, testLogger())

		partner := &models.TradingPartner{Code: "ACME", CommunicationMethod: models.CommMethodSFTP}
		_, err := channel.Send(context.Background(), partner, Payload{Filename: "x"})

		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))
	})

	t.Run("should reject partners without credentials as configuration", func(t *testing.T) {
		channel := NewSFTPChannel(time.Second, testLogger())

		partner := &models.TradingPartner{
			Code:                "ACME",
			CommunicationMethod: models.CommMethodSFTP,
			SFTP:                models.SFTPConfig{Host: "sftp.example.com"},
		}
		_, err := channel.Send(context.Background(), partner, Payload{Filename: "x"})

		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))
	})
}

func TestParseMDNDisposition(t *testing.T) {
	assert.Equal(t, "automatic-action/MDN-sent-automatically; processed",
		parseMDNDisposition("Reporting-UA: x\r\nDisposition: automatic-action/MDN-sent-automatically; processed\r\n"))
	assert.Equal(t, "", parseMDNDisposition("no disposition here"))
}
